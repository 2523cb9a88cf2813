package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// State describes the session lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

const (
	// scanEmitInterval throttles the "scanning" heartbeat.
	scanEmitInterval = 2 * time.Second
	// idleHintAfter is how long a session runs without a single logged
	// event before it suggests re-enrollment or a threshold check.
	idleHintAfter = 20 * time.Second
)

// Detector finds face regions in a grayscale frame.
type Detector interface {
	Detect(frame *image.Gray) []image.Rectangle
}

// Classifier assigns a normalized face to the nearest trained identity.
type Classifier interface {
	Loaded() bool
	Classify(face *image.Gray) (userID int, distance float64, err error)
}

// Ledger is the subset of the attendance store the engine writes to.
type Ledger interface {
	ListUsers(ctx context.Context) ([]ledger.User, error)
	LastEventTime(ctx context.Context, userID int) (time.Time, bool, error)
	LogAttendance(ctx context.Context, userID int, name string, ts time.Time) (ledger.LogOutcome, error)
}

// Options tune a session run.
type Options struct {
	Duration          time.Duration
	DistanceThreshold float64
	DuplicateWindow   time.Duration
	StableFrames      int
	StableWindow      int
	StopOnSuccess     bool
}

// Engine runs the recognition loop: read a frame, detect faces,
// classify each one, gate on confidence and the duplicate window, and
// write accepted matches to the ledger. One engine serves the whole
// process; at most one session runs at a time.
type Engine struct {
	store      Ledger
	detector   Detector
	classifier Classifier
	guard      *Guard
	events     *Broadcaster
	now        func() time.Time

	mu        sync.Mutex
	state     State
	sessionID string
	startedAt time.Time
	deadline  time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
}

// NewEngine wires an engine. The guard is shared with the training
// path so the two can never overlap.
func NewEngine(store Ledger, detector Detector, classifier Classifier, guard *Guard) *Engine {
	return &Engine{
		store:      store,
		detector:   detector,
		classifier: classifier,
		guard:      guard,
		events:     NewBroadcaster(),
		now:        time.Now,
		state:      StateIdle,
	}
}

// Events exposes the status stream.
func (e *Engine) Events() *Broadcaster {
	return e.events
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	State     State     `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Deadline  time.Time `json:"deadline,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Status reports the current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{State: e.state, SessionID: e.sessionID}
	if e.state == StateRunning || e.state == StateStarting || e.state == StateStopping {
		st.StartedAt = e.startedAt
		st.Deadline = e.deadline
	}
	if e.lastErr != nil {
		st.Error = e.lastErr.Error()
	}
	return st
}

// Start begins a session on the given source. It validates
// preconditions synchronously and returns before the frame loop runs;
// ErrSessionActive, ErrTrainingActive, faceid.ErrModelNotLoaded and
// camera open failures all leave the engine idle. A failed previous
// attempt does not block a new one.
func (e *Engine) Start(ctx context.Context, source camera.Source, opts Options) (string, error) {
	if err := e.guard.BeginSession(); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.state = StateStarting
	e.lastErr = nil
	e.mu.Unlock()
	e.emitState(StateStarting, "")

	abort := func(err error) (string, error) {
		e.guard.EndSession()
		e.mu.Lock()
		e.state = StateIdle
		e.mu.Unlock()
		e.emitState(StateIdle, err.Error())
		return "", err
	}

	if !e.classifier.Loaded() {
		return abort(faceid.ErrModelNotLoaded)
	}

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return abort(fmt.Errorf("loading user roster: %w", err))
	}
	roster := make(map[int]string, len(users))
	for _, u := range users {
		roster[u.ID] = u.Name
	}

	if err := source.Open(ctx); err != nil {
		return abort(err)
	}

	if opts.Duration <= 0 {
		opts.Duration = 90 * time.Second
	}
	runCtx, cancel := context.WithTimeout(context.Background(), opts.Duration)

	e.mu.Lock()
	e.sessionID = uuid.NewString()
	e.startedAt = e.now()
	e.deadline = e.startedAt.Add(opts.Duration)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = StateRunning
	id := e.sessionID
	done := e.done
	e.mu.Unlock()
	e.emitState(StateRunning, "")
	log.Printf("session %s started, duration %s", id, opts.Duration)

	go func() {
		defer close(done)
		defer cancel()
		defer e.guard.EndSession()
		e.run(runCtx, source, roster, opts)
	}()
	return id, nil
}

// Stop requests the running session to end. It returns immediately;
// the loop observes the cancellation within one frame iteration.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current session loop has exited. It returns
// immediately when no session is running.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) run(ctx context.Context, source camera.Source, roster map[int]string, opts Options) {
	var failure error
	defer func() {
		if err := source.Close(); err != nil {
			log.Printf("closing camera source: %v", err)
		}
		e.mu.Lock()
		id := e.sessionID
		e.cancel = nil
		if failure != nil {
			e.state = StateFailed
			e.lastErr = failure
		} else {
			e.state = StateIdle
		}
		e.mu.Unlock()
		if failure != nil {
			log.Printf("session %s failed: %v", id, failure)
			e.events.Send(Event{Type: EventError, State: StateFailed, Message: failure.Error()})
		} else {
			log.Printf("session %s finished", id)
			e.events.Send(Event{Type: EventFinished, State: StateIdle, Message: "session finished"})
		}
	}()

	tracker := newStabilityTracker(opts.StableFrames, opts.StableWindow)
	lastSeen := make(map[int]time.Time)
	logged := 0
	var lastScan, hintAt time.Time
	started := e.now()

	for {
		if ctx.Err() != nil {
			e.emitState(StateStopping, "")
			return
		}

		frame, err := source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				e.emitState(StateStopping, "")
				return
			}
			failure = err
			return
		}

		gray := faceid.ToGray(frame)
		regions := e.detector.Detect(gray)
		if len(regions) == 0 {
			if logged == 0 && hintAt.IsZero() && e.now().Sub(started) > idleHintAfter {
				hintAt = e.now()
				e.events.Send(Event{Type: EventHint, State: StateRunning,
					Message: "no recognized faces yet, check lighting or re-enroll"})
			}
			if e.now().Sub(lastScan) > scanEmitInterval {
				lastScan = e.now()
				e.events.Send(Event{Type: EventScanning, State: StateRunning, Message: "scanning"})
			}
			continue
		}

		for _, region := range regions {
			face := faceid.Normalize(gray, region)
			id, dist, err := e.classifier.Classify(face)
			if err != nil {
				log.Printf("classify: %v", err)
				continue
			}
			id, dist, stable := tracker.observe(id, dist)
			if !stable {
				continue
			}

			name, known := roster[id]
			if !known || dist > opts.DistanceThreshold {
				e.events.Send(Event{Type: EventUnknown, State: StateRunning,
					Message: fmt.Sprintf("unrecognized face (distance %.3f)", dist)})
				continue
			}

			ts := e.now()
			if e.withinDuplicateWindow(ctx, id, ts, lastSeen, opts.DuplicateWindow) {
				e.events.Send(Event{Type: EventDuplicate, State: StateRunning,
					UserID: id, Name: name, Message: "already logged recently"})
				continue
			}

			outcome, err := e.store.LogAttendance(ctx, id, name, ts)
			if err != nil {
				log.Printf("logging attendance for user %d: %v", id, err)
				e.events.Send(Event{Type: EventError, State: StateRunning, Message: "attendance write failed"})
				continue
			}
			if outcome == ledger.Deduplicated {
				e.events.Send(Event{Type: EventDuplicate, State: StateRunning,
					UserID: id, Name: name, Message: "already logged recently"})
				continue
			}

			lastSeen[id] = ts
			logged++
			log.Printf("attendance logged: user %d (%s) at %s", id, name, ts.Format(ledger.TimestampLayout))
			e.events.Send(Event{Type: EventLogged, State: StateRunning,
				UserID: id, Name: name, Time: ts.Format(ledger.TimestampLayout),
				Message: fmt.Sprintf("logged %s", name)})
			if opts.StopOnSuccess {
				e.Stop()
			}
		}
	}
}

// withinDuplicateWindow checks the in-memory cache first, then the
// ledger, so restarts mid-window still dedupe.
func (e *Engine) withinDuplicateWindow(ctx context.Context, userID int, ts time.Time, lastSeen map[int]time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	last := lastSeen[userID]
	if stored, ok, err := e.store.LastEventTime(ctx, userID); err == nil && ok && stored.After(last) {
		last = stored
	}
	return !last.IsZero() && ts.Sub(last) < window
}

// stabilityTracker smooths per-frame classifications: a label is only
// reported stable once it appears in at least need of the last window
// observations, and its distance is then averaged over those
// observations. With need <= 1 the tracker is pass-through.
type stabilityTracker struct {
	need   int
	window int
	recent []int
	dists  map[int][]float64
}

func newStabilityTracker(need, window int) *stabilityTracker {
	if window < need {
		window = need
	}
	return &stabilityTracker{need: need, window: window, dists: make(map[int][]float64)}
}

func (t *stabilityTracker) observe(label int, dist float64) (int, float64, bool) {
	if t.need <= 1 {
		return label, dist, true
	}

	t.recent = append(t.recent, label)
	t.dists[label] = append(t.dists[label], dist)
	if len(t.recent) > t.window {
		dropped := t.recent[0]
		t.recent = t.recent[1:]
		if d := t.dists[dropped]; len(d) > 0 {
			t.dists[dropped] = d[1:]
		}
	}

	counts := make(map[int]int, len(t.recent))
	best, bestCount := label, 0
	for _, l := range t.recent {
		counts[l]++
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	if bestCount < t.need {
		return label, dist, false
	}

	sum := 0.0
	for _, d := range t.dists[best] {
		sum += d
	}
	return best, sum / float64(len(t.dists[best])), true
}

func (e *Engine) emitState(state State, message string) {
	e.events.Send(Event{Type: EventState, State: state, Message: message})
}
