package video

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pthm-cable/heatmap/heat"
)

// ImageDirSource plays a directory of PNG or JPEG files as a video, in
// lexical file name order.
type ImageDirSource struct {
	files []string
	next  int
	w, h  int
	fps   float64
}

// OpenImageDir lists the images in dir. The first image fixes the frame
// size; fps is the rate the sequence is played at.
func OpenImageDir(dir string, fps float64) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)

	first, err := decodeImage(files[0])
	if err != nil {
		return nil, err
	}
	b := first.Bounds()

	return &ImageDirSource{
		files: files,
		w:     b.Dx(),
		h:     b.Dy(),
		fps:   fps,
	}, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// Next decodes the next image, or returns io.EOF after the last one.
func (s *ImageDirSource) Next() (*heat.Frame, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	s.next++

	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != s.w || b.Dy() != s.h {
		return nil, fmt.Errorf("%w: %s is %dx%d, sequence is %dx%d",
			heat.ErrFrameSize, path, b.Dx(), b.Dy(), s.w, s.h)
	}
	return heat.FrameFromImage(img), nil
}

// Size returns the frame dimensions.
func (s *ImageDirSource) Size() (int, int) { return s.w, s.h }

// FPS returns the playback rate.
func (s *ImageDirSource) FPS() float64 { return s.fps }

// Len returns the number of images in the sequence.
func (s *ImageDirSource) Len() int { return len(s.files) }

// Close is a no-op.
func (s *ImageDirSource) Close() error { return nil }

// ImageDirWriter writes every frame as frame_NNNNNN.png.
type ImageDirWriter struct {
	dir    string
	frames int
}

// NewImageDirWriter creates dir if needed.
func NewImageDirWriter(dir string) (*ImageDirWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &ImageDirWriter{dir: dir}, nil
}

// WriteFrame encodes frame as the next PNG in the sequence.
func (w *ImageDirWriter) WriteFrame(frame *heat.Frame) error {
	path := filepath.Join(w.dir, fmt.Sprintf("frame_%06d.png", w.frames))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns how many frames were written.
func (w *ImageDirWriter) Frames() int { return w.frames }

// Close is a no-op.
func (w *ImageDirWriter) Close() error { return nil }
