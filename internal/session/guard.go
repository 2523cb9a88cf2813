package session

import (
	"errors"
	"sync"
)

var (
	// ErrSessionActive is returned when a second session or a training
	// run is attempted while a session is running.
	ErrSessionActive = errors.New("a recognition session is already running")
	// ErrTrainingActive is returned when a session start or a second
	// training run is attempted while training is in progress.
	ErrTrainingActive = errors.New("model training is in progress")
)

// Guard enforces mutual exclusion between the recognition session and
// model training. Training replaces the model file; it must never run
// under an active session, and vice versa.
type Guard struct {
	mu       sync.Mutex
	session  bool
	training bool
}

// NewGuard creates an idle guard.
func NewGuard() *Guard {
	return &Guard{}
}

// BeginSession claims the session slot.
func (g *Guard) BeginSession() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.training {
		return ErrTrainingActive
	}
	if g.session {
		return ErrSessionActive
	}
	g.session = true
	return nil
}

// EndSession releases the session slot.
func (g *Guard) EndSession() {
	g.mu.Lock()
	g.session = false
	g.mu.Unlock()
}

// BeginTraining claims the training slot.
func (g *Guard) BeginTraining() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session {
		return ErrSessionActive
	}
	if g.training {
		return ErrTrainingActive
	}
	g.training = true
	return nil
}

// EndTraining releases the training slot.
func (g *Guard) EndTraining() {
	g.mu.Lock()
	g.training = false
	g.mu.Unlock()
}
