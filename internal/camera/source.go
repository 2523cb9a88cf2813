// Package camera abstracts frame acquisition. A Source is an
// exclusively owned handle for the duration of a session or enrollment
// run; every exit path must Close it.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ErrCameraUnavailable is returned when a source cannot be opened or
// its stream is lost mid-run.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Source yields frames from a camera device or stream. ReadFrame
// blocks until a frame is available, the stream fails, or ctx is
// cancelled (in which case it returns ctx.Err()).
type Source interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// FromConfig selects a source from the station configuration: a
// non-empty camera URL picks the MJPEG stream source, otherwise the
// camera index selects a numbered subdirectory of the frames dir.
func FromConfig(cfg *config.Config) (Source, error) {
	if cfg.CameraURL != "" {
		return NewMJPEGSource(cfg.CameraURL), nil
	}
	if cfg.FramesDir != "" {
		dir := filepath.Join(cfg.FramesDir, strconv.Itoa(cfg.CameraIndex))
		return NewDirSource(dir, 0), nil
	}
	return nil, fmt.Errorf("%w: no camera_url or frames_dir configured", ErrCameraUnavailable)
}
