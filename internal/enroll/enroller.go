// Package enroll captures face samples for new users and manages the
// enrollment lifecycle around them.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

// ErrPrivacyMode is returned when sample capture is attempted while
// privacy mode is on. Privacy mode forbids writing face images to disk.
var ErrPrivacyMode = errors.New("privacy mode enabled, sample capture is disabled")

// minSharpness rejects motion-blurred captures. Blurry samples poison
// the training set far more than missing ones.
const minSharpness = 60.0

// Directory is the user-roster subset of the ledger the enroller needs.
type Directory interface {
	UpsertUser(ctx context.Context, id int, name string) error
	RetireUser(ctx context.Context, id int) error
	ListUsers(ctx context.Context) ([]ledger.User, error)
}

// Detector finds face regions in a grayscale frame.
type Detector interface {
	Detect(frame *image.Gray) []image.Rectangle
}

// Progress reports capture advancement, called after every saved
// sample.
type Progress func(captured, target int)

// Enroller captures normalized face samples into the sample store and
// registers the user in the directory.
type Enroller struct {
	users    Directory
	store    *samples.Store
	detector Detector
	privacy  bool
}

// NewEnroller wires an enroller. With privacy true all capture calls
// fail with ErrPrivacyMode.
func NewEnroller(users Directory, store *samples.Store, detector Detector, privacy bool) *Enroller {
	return &Enroller{users: users, store: store, detector: detector, privacy: privacy}
}

// SameNameUsers returns existing users whose names match the given one
// after normalization. Callers surface these as a warning before
// enrolling, since distinct people may legitimately share a name.
func (e *Enroller) SameNameUsers(ctx context.Context, name string) ([]ledger.User, error) {
	want := NormalizePersonName(name)
	if want == "" {
		return nil, nil
	}
	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var matches []ledger.User
	for _, u := range users {
		if NormalizePersonName(u.Name) == want {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// Capture reads frames from the source until target samples of the
// user's face are saved or ctx ends. Only the largest detected face in
// a frame is considered, and blurred captures are skipped. The user is
// registered in the directory once the first sample lands, so an
// interrupted run with partial samples still leaves a consistent
// state. Returns the number of samples captured.
func (e *Enroller) Capture(ctx context.Context, source camera.Source, userID int, name string, target int, progress Progress) (int, error) {
	if e.privacy {
		return 0, ErrPrivacyMode
	}
	if userID <= 0 {
		return 0, fmt.Errorf("user id must be positive, got %d", userID)
	}
	if name == "" {
		return 0, fmt.Errorf("user name must not be empty")
	}
	if target <= 0 {
		return 0, fmt.Errorf("sample target must be positive, got %d", target)
	}

	if err := source.Open(ctx); err != nil {
		return 0, err
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Printf("closing camera source: %v", err)
		}
	}()

	captured := 0
	for captured < target {
		frame, err := source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return captured, err
		}

		gray := faceid.ToGray(frame)
		region, ok := largestRegion(e.detector.Detect(gray))
		if !ok {
			continue
		}

		face := faceid.Normalize(gray, region)
		if faceid.Sharpness(face) < minSharpness {
			continue
		}

		if _, err := e.store.Save(userID, face); err != nil {
			return captured, fmt.Errorf("saving sample: %w", err)
		}
		captured++
		if captured == 1 {
			if err := e.users.UpsertUser(ctx, userID, name); err != nil {
				return captured, fmt.Errorf("registering user %d: %w", userID, err)
			}
		}
		if progress != nil {
			progress(captured, target)
		}
	}

	if captured == 0 {
		return 0, fmt.Errorf("no usable face samples captured for user %d", userID)
	}
	return captured, nil
}

// Retire removes the user from the directory and deletes their stored
// samples. Past attendance rows stay untouched, and the trained model
// keeps the identity until the next training run.
func (e *Enroller) Retire(ctx context.Context, userID int) error {
	if err := e.users.RetireUser(ctx, userID); err != nil {
		return err
	}
	removed, err := e.store.DeleteUser(userID)
	if err != nil {
		return fmt.Errorf("deleting samples for user %d: %w", userID, err)
	}
	log.Printf("retired user %d, removed %d samples", userID, removed)
	return nil
}

func largestRegion(regions []image.Rectangle) (image.Rectangle, bool) {
	if len(regions) == 0 {
		return image.Rectangle{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if area(r) > area(best) {
			best = r
		}
	}
	return best, true
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
