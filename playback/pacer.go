package playback

import (
	"time"

	"github.com/pthm-cable/heatmap/heat"
)

// Pacer is a FrameSink that holds each frame until its presentation time,
// so playback runs at the video rate without a window to pace it.
type Pacer struct {
	interval time.Duration
	next     time.Time
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewPacer paces frames at fps.
func NewPacer(fps float64) *Pacer {
	return &Pacer{
		interval: time.Duration(float64(time.Second) / fps),
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// WriteFrame blocks until one interval after the previous frame. A caller
// that falls behind is not made to catch up.
func (p *Pacer) WriteFrame(*heat.Frame) error {
	now := p.now()
	if p.next.IsZero() {
		p.next = now.Add(p.interval)
		return nil
	}
	if wait := p.next.Sub(now); wait > 0 {
		p.sleep(wait)
		p.next = p.next.Add(p.interval)
		return nil
	}
	p.next = now.Add(p.interval)
	return nil
}

// Close is a no-op.
func (p *Pacer) Close() error { return nil }
