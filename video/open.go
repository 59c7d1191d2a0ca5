// Package video reads and writes frame streams: media files through
// GStreamer and plain image sequences from a directory.
package video

import (
	"fmt"
	"os"

	"github.com/pthm-cable/heatmap/playback"
)

// Open returns a frame source for path. A directory is read as an image
// sequence played at fps; anything else is decoded by GStreamer, which
// reports its own rate.
func Open(path string, fps float64) (playback.FrameSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening video: %w", err)
	}
	if info.IsDir() {
		return OpenImageDir(path, fps)
	}
	return OpenFile(path)
}

// Create returns a frame sink for path. A path ending in a separator or
// naming an existing directory receives PNG images; anything else is
// encoded with fourcc.
func Create(path, fourcc string, fps float64, w, h int) (playback.FrameSink, error) {
	if isDirPath(path) {
		return NewImageDirWriter(path)
	}
	return NewGstWriter(path, fourcc, fps, w, h)
}

func isDirPath(path string) bool {
	if n := len(path); n > 0 && os.IsPathSeparator(path[n-1]) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
