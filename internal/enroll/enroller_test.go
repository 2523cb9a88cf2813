package enroll

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

type fakeDirectory struct {
	mu      sync.Mutex
	users   map[int]string
	retired []int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[int]string)}
}

func (d *fakeDirectory) UpsertUser(ctx context.Context, id int, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = name
	return nil
}

func (d *fakeDirectory) RetireUser(ctx context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return ledger.ErrUserNotFound
	}
	delete(d.users, id)
	d.retired = append(d.retired, id)
	return nil
}

func (d *fakeDirectory) ListUsers(ctx context.Context) ([]ledger.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var users []ledger.User
	for id, name := range d.users {
		users = append(users, ledger.User{ID: id, Name: name})
	}
	return users, nil
}

type fakeDetector struct {
	regions []image.Rectangle
}

func (d *fakeDetector) Detect(frame *image.Gray) []image.Rectangle {
	return d.regions
}

// frameSource serves the same frame over and over, like a camera
// pointed at a still subject.
type frameSource struct {
	frame  image.Image
	limit  int
	served int
}

func (s *frameSource) Open(ctx context.Context) error { return nil }

func (s *frameSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.limit > 0 && s.served >= s.limit {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s.served++
	return s.frame, nil
}

func (s *frameSource) Close() error { return nil }

// sharpFrame has enough texture to pass the blur gate.
func sharpFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 220})
			} else {
				img.SetGray(x, y, color.Gray{Y: 30})
			}
		}
	}
	return img
}

func wholeFrame() []image.Rectangle {
	return []image.Rectangle{image.Rect(0, 0, 200, 200)}
}

func newTestEnroller(t *testing.T, privacy bool) (*Enroller, *fakeDirectory, *samples.Store) {
	t.Helper()
	store, err := samples.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating sample store: %v", err)
	}
	dir := newFakeDirectory()
	return NewEnroller(dir, store, &fakeDetector{regions: wholeFrame()}, privacy), dir, store
}

func TestCaptureStoresSamplesAndRegistersUser(t *testing.T) {
	enroller, dir, store := newTestEnroller(t, false)
	source := &frameSource{frame: sharpFrame()}

	var progressCalls int
	captured, err := enroller.Capture(context.Background(), source, 1, "Alice", 5, func(done, total int) {
		progressCalls++
		if total != 5 {
			t.Errorf("progress total = %d, want 5", total)
		}
	})
	if err != nil {
		t.Fatalf("capturing: %v", err)
	}
	if captured != 5 {
		t.Errorf("captured %d samples, want 5", captured)
	}
	if progressCalls != 5 {
		t.Errorf("progress called %d times, want 5", progressCalls)
	}

	if dir.users[1] != "Alice" {
		t.Error("user must be registered after capture")
	}
	counts, err := store.CountByUser()
	if err != nil {
		t.Fatalf("counting samples: %v", err)
	}
	if counts[1] != 5 {
		t.Errorf("stored %d samples, want 5", counts[1])
	}
}

func TestCapturePrivacyMode(t *testing.T) {
	enroller, dir, _ := newTestEnroller(t, true)

	_, err := enroller.Capture(context.Background(), &frameSource{frame: sharpFrame()}, 1, "Alice", 5, nil)
	if !errors.Is(err, ErrPrivacyMode) {
		t.Fatalf("got %v, want ErrPrivacyMode", err)
	}
	if len(dir.users) != 0 {
		t.Error("no user must be registered in privacy mode")
	}
}

func TestCaptureSkipsBlurryFrames(t *testing.T) {
	enroller, dir, _ := newTestEnroller(t, false)
	flat := image.NewGray(image.Rect(0, 0, 200, 200))
	source := &frameSource{frame: flat, limit: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	captured, err := enroller.Capture(ctx, source, 1, "Alice", 5, nil)
	if err == nil {
		t.Fatal("expected an error when no usable samples were captured")
	}
	if captured != 0 {
		t.Errorf("captured %d blurry samples, want 0", captured)
	}
	if len(dir.users) != 0 {
		t.Error("user must not be registered without samples")
	}
}

func TestCaptureValidatesInput(t *testing.T) {
	enroller, _, _ := newTestEnroller(t, false)
	source := &frameSource{frame: sharpFrame()}

	if _, err := enroller.Capture(context.Background(), source, 0, "Alice", 5, nil); err == nil {
		t.Error("expected error for non-positive user id")
	}
	if _, err := enroller.Capture(context.Background(), source, 1, "", 5, nil); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := enroller.Capture(context.Background(), source, 1, "Alice", 0, nil); err == nil {
		t.Error("expected error for non-positive target")
	}
}

func TestRetireRemovesUserAndSamples(t *testing.T) {
	enroller, dir, store := newTestEnroller(t, false)
	source := &frameSource{frame: sharpFrame()}

	if _, err := enroller.Capture(context.Background(), source, 1, "Alice", 2, nil); err != nil {
		t.Fatalf("capturing: %v", err)
	}

	if err := enroller.Retire(context.Background(), 1); err != nil {
		t.Fatalf("retiring: %v", err)
	}
	if len(dir.users) != 0 {
		t.Error("user must be removed from the roster")
	}
	counts, err := store.CountByUser()
	if err != nil {
		t.Fatalf("counting samples: %v", err)
	}
	if counts[1] != 0 {
		t.Errorf("%d samples left after retire, want 0", counts[1])
	}
}

func TestSameNameUsers(t *testing.T) {
	enroller, dir, _ := newTestEnroller(t, false)
	dir.users[1] = "Jürgen Müller"

	matches, err := enroller.SameNameUsers(context.Background(), "  jurgen   muller ")
	if err != nil {
		t.Fatalf("checking names: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != 1 {
		t.Errorf("matches = %+v, want user 1", matches)
	}

	matches, err = enroller.SameNameUsers(context.Background(), "someone else")
	if err != nil {
		t.Fatalf("checking names: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches for a fresh name, want 0", len(matches))
	}
}
