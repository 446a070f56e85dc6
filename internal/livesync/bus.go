package livesync

import "sync"

// Topic names the kind of change carried by an Event.
type Topic string

const (
	TopicStyle      Topic = "style"       // Data: style.Document
	TopicText       Topic = "text"        // Data: string, the text replaced wholesale
	TopicHighlight  Topic = "highlight"   // Data: *Mark, nil when cleared
	TopicViewport   Topic = "viewport"    // Data: viewport.Viewport
	TopicParseError Topic = "parse-error" // Data: *style.ParseError, nil when cleared
	TopicSelection  Topic = "selection"   // Data: set by the interaction bridge
)

// Event is one change pushed to the renderer and text view projections.
type Event struct {
	Topic   Topic
	Version uint64 // document version current when the event was raised
	Data    any
}

// Bus is a simple fan-out pub/sub for projection events.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
// A full subscriber misses the event, except for style and text events:
// those replace the oldest buffered event, so a slow page still ends up
// at the latest document.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		if !e.keepLatest() {
			continue // subscriber too slow, skip
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

func (e Event) keepLatest() bool {
	return e.Topic == TopicStyle || e.Topic == TopicText
}

// Subscribe returns a buffered channel that receives events.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
