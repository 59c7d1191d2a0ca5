package video

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/pthm-cable/heatmap/heat"
)

// GstSource decodes a media file to RGBA frames through GStreamer.
type GstSource struct {
	path     string
	pipeline *gst.Pipeline
	sink     *app.Sink
	w, h     int
	fps      float64
	pending  *heat.Frame
	frames   int
}

// OpenFile starts a decode pipeline for path and reads the first frame to
// learn the stream geometry.
func OpenFile(path string) (*GstSource, error) {
	gst.Init(nil)

	pipelineStr := fmt.Sprintf(
		"filesrc location=%q ! decodebin ! videoconvert ! video/x-raw,format=RGBA ! appsink name=sink sync=false",
		path,
	)
	slog.Debug("creating decode pipeline", "pipeline", pipelineStr)

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return nil, fmt.Errorf("creating decode pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("finding appsink: %w", err)
	}

	s := &GstSource{
		path:     path,
		pipeline: pipeline,
		sink:     app.SinkFromElement(elem),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("starting decode pipeline: %w", err)
	}

	sample := s.sink.PullSample()
	if sample == nil {
		err := s.busError()
		pipeline.SetState(gst.StateNull)
		if err == nil {
			err = fmt.Errorf("no video frames in %s", path)
		}
		return nil, err
	}
	if err := s.readCaps(sample); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, err
	}
	frame, err := s.frameFromSample(sample)
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, err
	}
	s.pending = frame

	slog.Info("video opened",
		"path", path,
		"width", s.w,
		"height", s.h,
		"fps", s.fps,
	)
	return s, nil
}

func (s *GstSource) readCaps(sample *gst.Sample) error {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return fmt.Errorf("decoded sample carries no caps")
	}
	structure := caps.GetStructureAt(0)

	if val, err := structure.GetValue("width"); err == nil {
		if width, ok := val.(int); ok {
			s.w = width
		}
	}
	if val, err := structure.GetValue("height"); err == nil {
		if height, ok := val.(int); ok {
			s.h = height
		}
	}
	if val, err := structure.GetValue("framerate"); err == nil {
		s.fps = parseFramerate(fmt.Sprintf("%v", val))
	}

	if s.w <= 0 || s.h <= 0 {
		return fmt.Errorf("could not read frame size from caps %s", caps.String())
	}
	return nil
}

// parseFramerate converts a caps framerate such as "30000/1001" to frames
// per second. Unparseable or variable rates give 0.
func parseFramerate(str string) float64 {
	var num, den int
	if _, err := fmt.Sscanf(str, "%d/%d", &num, &den); err == nil {
		if den > 0 {
			return float64(num) / float64(den)
		}
		return 0
	}
	var fps float64
	if _, err := fmt.Sscanf(str, "%g", &fps); err == nil {
		return fps
	}
	return 0
}

func (s *GstSource) frameFromSample(sample *gst.Sample) (*heat.Frame, error) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("sample without buffer")
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	// GStreamer reuses the buffer, the frame needs its own pixels.
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	return heat.FrameFromBytes(pix, s.w, s.h)
}

// Next returns the next decoded frame, or io.EOF after the last one.
func (s *GstSource) Next() (*heat.Frame, error) {
	if s.pending != nil {
		f := s.pending
		s.pending = nil
		s.frames++
		return f, nil
	}

	sample := s.sink.PullSample()
	if sample == nil {
		if s.sink.IsEOS() {
			return nil, io.EOF
		}
		if err := s.busError(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	frame, err := s.frameFromSample(sample)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", s.frames, err)
	}
	s.frames++
	return frame, nil
}

// busError drains pending bus messages and returns the first error posted.
func (s *GstSource) busError() error {
	bus := s.pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			return nil
		}
		if msg.Type() == gst.MessageError {
			gerr := msg.ParseError()
			slog.Error("decode pipeline error",
				"path", s.path,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return fmt.Errorf("decoding %s: %s", s.path, gerr.Error())
		}
	}
}

// Size returns the frame dimensions.
func (s *GstSource) Size() (int, int) { return s.w, s.h }

// FPS returns the stream frame rate, 0 if the container does not declare one.
func (s *GstSource) FPS() float64 { return s.fps }

// Close stops the pipeline.
func (s *GstSource) Close() error {
	return s.pipeline.SetState(gst.StateNull)
}

// encoding names the GStreamer elements that produce one FOURCC.
type encoding struct {
	encoder string
	muxer   string
}

var encodings = map[string]encoding{
	"MJPG": {"jpegenc", "avimux"},
	"XVID": {"avenc_mpeg4", "avimux"},
	"DIVX": {"avenc_mpeg4", "avimux"},
	"FMP4": {"avenc_mpeg4", "avimux"},
	"H264": {"x264enc", "mp4mux"},
	"X264": {"x264enc", "mp4mux"},
	"AVC1": {"x264enc", "mp4mux"},
	"VP80": {"vp8enc", "webmmux"},
	"PNG ": {"pngenc", "matroskamux"},
}

// LookupFourCC returns the encoder and muxer element names for a FOURCC.
// Codes are case-insensitive; "PNG" is accepted for "PNG ".
func LookupFourCC(fourcc string) (encoder, muxer string, err error) {
	code := strings.ToUpper(fourcc)
	if code == "PNG" {
		code = "PNG "
	}
	enc, ok := encodings[code]
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported fourcc %q", heat.ErrInvalidConfiguration, fourcc)
	}
	return enc.encoder, enc.muxer, nil
}

// GstWriter encodes RGBA frames to a file through GStreamer.
type GstWriter struct {
	path      string
	pipeline  *gst.Pipeline
	src       *app.Source
	w, h      int
	frameTime time.Duration
	frames    int
	closed    bool
}

// NewGstWriter builds appsrc ! videoconvert ! encoder ! muxer ! filesink for
// the given FOURCC and starts it.
func NewGstWriter(path, fourcc string, fps float64, w, h int) (*GstWriter, error) {
	encName, muxName, err := LookupFourCC(fourcc)
	if err != nil {
		return nil, err
	}
	if !(fps > 0) {
		return nil, fmt.Errorf("%w: writer fps %v", heat.ErrInvalidConfiguration, fps)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("creating encode pipeline: %w", err)
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, fmt.Errorf("creating appsrc: %w", err)
	}
	num, den := framerateFraction(fps)
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/%d", w, h, num, den,
	))
	src.SetCaps(caps)
	src.SetProperty("format", gst.FormatTime)

	elems := []*gst.Element{src.Element}
	for _, name := range []string{"videoconvert", encName, muxName, "filesink"} {
		el, err := gst.NewElement(name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", name, err)
		}
		elems = append(elems, el)
	}
	elems[len(elems)-1].SetProperty("location", path)

	if err := pipeline.AddMany(elems...); err != nil {
		return nil, fmt.Errorf("adding elements to encode pipeline: %w", err)
	}
	if err := gst.ElementLinkMany(elems...); err != nil {
		return nil, fmt.Errorf("linking encode pipeline: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("starting encode pipeline: %w", err)
	}

	slog.Info("video writer opened",
		"path", path,
		"fourcc", fourcc,
		"encoder", encName,
		"muxer", muxName,
		"fps", fps,
	)

	return &GstWriter{
		path:      path,
		pipeline:  pipeline,
		src:       src,
		w:         w,
		h:         h,
		frameTime: time.Duration(float64(time.Second) / fps),
	}, nil
}

// framerateFraction expresses fps as a caps fraction with millisecond
// precision, e.g. 29.97 -> 29970/1000.
func framerateFraction(fps float64) (int, int) {
	if fps == float64(int(fps)) {
		return int(fps), 1
	}
	return int(fps*1000 + 0.5), 1000
}

// WriteFrame pushes one frame into the encoder.
func (wr *GstWriter) WriteFrame(frame *heat.Frame) error {
	if frame.Width() != wr.w || frame.Height() != wr.h {
		return fmt.Errorf("%w: writer expects %dx%d, got %dx%d",
			heat.ErrFrameSize, wr.w, wr.h, frame.Width(), frame.Height())
	}

	pix := make([]byte, 0, wr.w*wr.h*4)
	for y := 0; y < wr.h; y++ {
		pix = append(pix, frame.Row(y)...)
	}

	buf := gst.NewBufferFromBytes(pix)
	buf.SetPresentationTimestamp(time.Duration(wr.frames) * wr.frameTime)
	buf.SetDuration(wr.frameTime)

	if ret := wr.src.PushBuffer(buf); ret != gst.FlowOK {
		return fmt.Errorf("pushing frame %d to %s: flow %v", wr.frames, wr.path, ret)
	}
	wr.frames++
	return nil
}

// Close sends end-of-stream, waits for the muxer to finalise the file and
// stops the pipeline.
func (wr *GstWriter) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true

	wr.src.EndStream()

	var result error
	bus := wr.pipeline.GetPipelineBus()
	deadline := time.Now().Add(10 * time.Second)
wait:
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			break wait
		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("encode pipeline error",
				"path", wr.path,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			result = fmt.Errorf("encoding %s: %s", wr.path, gerr.Error())
			break wait
		}
	}

	if err := wr.pipeline.SetState(gst.StateNull); err != nil && result == nil {
		result = err
	}
	slog.Info("video writer closed", "path", wr.path, "frames", wr.frames)
	return result
}
