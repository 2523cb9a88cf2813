package session

import (
	"sync"
	"testing"
	"time"
)

func TestBroadcasterSkipsFullListener(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	defer b.RemoveListener(ch)

	for i := 0; i < eventChannelBuffer+5; i++ {
		b.Send(Event{Type: EventScanning})
	}

	if got := len(ch); got != eventChannelBuffer {
		t.Errorf("buffered events = %d, want %d", got, eventChannelBuffer)
	}
	if b.Last().Type != EventScanning {
		t.Errorf("last event = %q, want %q", b.Last().Type, EventScanning)
	}
}

func TestBroadcasterSendRacesListenerRemoval(t *testing.T) {
	b := NewBroadcaster()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				b.Send(Event{Type: EventScanning})
			}
		}
	}()

	// Clients churn while the engine keeps emitting; a removed channel
	// must never receive another send.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		ch := b.AddListener()
		for i := 0; i < eventChannelBuffer; i++ {
			b.Send(Event{Type: EventHint})
		}
		b.RemoveListener(ch)
	}
	close(done)
	wg.Wait()
}
