package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays an ordered sequence of image files from a
// directory. Used for offline runs and tests where no live stream is
// available. When the sequence is exhausted it behaves like a camera
// with no new frames: ReadFrame blocks until the context is cancelled.
type DirSource struct {
	dir      string
	interval time.Duration
	files    []string
	next     int
}

// NewDirSource creates a directory source. interval throttles frame
// delivery; zero means frames are returned as fast as they are asked
// for.
func NewDirSource(dir string, interval time.Duration) *DirSource {
	return &DirSource{dir: dir, interval: interval}
}

// Open lists the frame files in lexical order.
func (s *DirSource) Open(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: reading frames dir %s: %v", ErrCameraUnavailable, s.dir, err)
	}

	s.files = s.files[:0]
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			s.files = append(s.files, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(s.files)

	if len(s.files) == 0 {
		return fmt.Errorf("%w: no frames in %s", ErrCameraUnavailable, s.dir)
	}
	s.next = 0
	return nil
}

// ReadFrame returns the next frame in the sequence.
func (s *DirSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: source not opened", ErrCameraUnavailable)
	}

	if s.next >= len(s.files) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if s.interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.files[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening frame %s: %v", ErrCameraUnavailable, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding frame %s: %v", ErrCameraUnavailable, path, err)
	}
	return img, nil
}

// Close releases nothing for a directory source but satisfies Source.
func (s *DirSource) Close() error {
	s.files = nil
	return nil
}
