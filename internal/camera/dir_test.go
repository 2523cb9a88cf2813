package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func writeFrame(t *testing.T, dir, name string, shade uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: shade})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("creating frame: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding frame: %v", err)
	}
}

func TestDirSourceReadsFramesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "frame-001.png", 10)
	writeFrame(t, dir, "frame-002.png", 20)
	writeFrame(t, dir, "ignored.txt.bak", 0)

	src := NewDirSource(dir, 0)
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatalf("opening source: %v", err)
	}
	defer src.Close()

	for i, want := range []uint8{10, 20} {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			t.Fatalf("reading frame %d: %v", i, err)
		}
		gray := color.GrayModel.Convert(frame.At(0, 0)).(color.Gray)
		if gray.Y != want {
			t.Errorf("frame %d shade = %d, want %d", i, gray.Y, want)
		}
	}
}

func TestDirSourceBlocksWhenExhausted(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "only.png", 1)

	src := NewDirSource(dir, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := src.Open(ctx); err != nil {
		t.Fatalf("opening source: %v", err)
	}
	defer src.Close()

	if _, err := src.ReadFrame(ctx); err != nil {
		t.Fatalf("reading frame: %v", err)
	}

	// No frames left: behaves like a camera with nothing new until the
	// context ends.
	start := time.Now()
	_, err := src.ReadFrame(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context deadline", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("ReadFrame returned before the context ended")
	}
}

func TestDirSourceEmptyDir(t *testing.T) {
	src := NewDirSource(t.TempDir(), 0)
	err := src.Open(context.Background())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("got %v, want ErrCameraUnavailable", err)
	}
}

func TestDirSourceReadBeforeOpen(t *testing.T) {
	src := NewDirSource(t.TempDir(), 0)
	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("got %v, want ErrCameraUnavailable", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{CameraURL: "http://cam.local/stream"}
	src, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("selecting source: %v", err)
	}
	if _, ok := src.(*MJPEGSource); !ok {
		t.Errorf("got %T, want *MJPEGSource", src)
	}

	cfg = &config.Config{FramesDir: "frames", CameraIndex: 2}
	src, err = FromConfig(cfg)
	if err != nil {
		t.Fatalf("selecting source: %v", err)
	}
	dirSrc, ok := src.(*DirSource)
	if !ok {
		t.Fatalf("got %T, want *DirSource", src)
	}
	if dirSrc.dir != filepath.Join("frames", "2") {
		t.Errorf("dir = %q, want frames/2", dirSrc.dir)
	}

	if _, err := FromConfig(&config.Config{}); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("got %v, want ErrCameraUnavailable", err)
	}
}
