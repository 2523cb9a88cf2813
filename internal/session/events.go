package session

import "sync"

// EventType classifies the status messages streamed out of a running
// session.
type EventType string

const (
	EventState     EventType = "state"
	EventScanning  EventType = "scanning"
	EventUnknown   EventType = "unknown"
	EventDuplicate EventType = "duplicate"
	EventLogged    EventType = "logged"
	EventHint      EventType = "hint"
	EventError     EventType = "error"
	EventFinished  EventType = "finished"
)

// eventChannelBuffer sizes listener channels. A slow listener loses
// events rather than stalling the frame loop.
const eventChannelBuffer = 32

// Event is one status update from the session engine.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	State   State     `json:"state,omitempty"`
	UserID  int       `json:"user_id,omitempty"`
	Name    string    `json:"name,omitempty"`
	Time    string    `json:"time,omitempty"`
}

// Broadcaster fans session events out to any number of listeners.
// Sends never block the frame loop: a listener with a full buffer
// skips the event.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	last      Event
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener registers a new event listener channel.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes a listener channel.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Send delivers an event to all listeners and records it as the most
// recent status. The lock is held across the sends so that
// RemoveListener cannot close a channel mid-broadcast; the sends are
// non-blocking, so the critical section stays short.
func (b *Broadcaster) Send(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = event
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Last returns the most recently sent event.
func (b *Broadcaster) Last() Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}
