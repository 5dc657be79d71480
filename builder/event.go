package builder

import (
	"sync"

	"github.com/iph0/conf/v3"
)

// EventType identifies the kind of a builder event.
type EventType int

// Builder event types. EventAny matches every event when registering
// listeners.
const (
	EventAny EventType = iota
	EventResultCreated
	EventReset
)

func (t EventType) String() string {
	switch t {
	case EventAny:
		return "any"
	case EventResultCreated:
		return "result-created"
	case EventReset:
		return "reset"
	}

	return "unknown"
}

// Event is sent to listeners of a builder. Result is set for
// EventResultCreated.
type Event struct {
	Type   EventType
	Result conf.Configuration
}

// Listener receives builder events.
type Listener func(Event)

type listenerEntry struct {
	typ      EventType
	listener Listener
}

type eventSource struct {
	mutex     sync.Mutex
	listeners []listenerEntry
}

func (s *eventSource) add(typ EventType, listener Listener) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.listeners = append(s.listeners, listenerEntry{typ: typ, listener: listener})
}

func (s *eventSource) fire(event Event) {
	s.mutex.Lock()
	listeners := append([]listenerEntry(nil), s.listeners...)
	s.mutex.Unlock()

	for _, entry := range listeners {
		if entry.typ == EventAny || entry.typ == event.Type {
			entry.listener(event)
		}
	}
}
