package conf

import "sync"

// EventType identifies the kind of a configuration change.
type EventType int

// Event types. EventAny matches every event when registering listeners.
const (
	EventAny EventType = iota
	EventAddProperty
	EventSetProperty
	EventClearProperty
	EventClear
	EventAddNodes
	EventClearTree
	EventSubnodeChanged
	EventReload
)

var eventTypeNames = map[EventType]string{
	EventAny:            "any",
	EventAddProperty:    "add-property",
	EventSetProperty:    "set-property",
	EventClearProperty:  "clear-property",
	EventClear:          "clear",
	EventAddNodes:       "add-nodes",
	EventClearTree:      "clear-tree",
	EventSubnodeChanged: "subnode-changed",
	EventReload:         "reload",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}

	return "unknown"
}

// Event describes a change of a configuration. Every change is reported twice:
// before it is applied (Before is true) and after.
type Event struct {
	Type   EventType
	Source Configuration
	Key    string
	Value  any
	Before bool
}

// Listener receives configuration events.
type Listener func(Event)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listenerEntry struct {
	id       ListenerID
	typ      EventType
	listener Listener
}

type eventSource struct {
	mutex     sync.RWMutex
	lastID    ListenerID
	listeners []listenerEntry
}

func (es *eventSource) add(typ EventType, l Listener) ListenerID {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	es.lastID++
	es.listeners = append(es.listeners,
		listenerEntry{id: es.lastID, typ: typ, listener: l})

	return es.lastID
}

func (es *eventSource) remove(id ListenerID) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	for i, entry := range es.listeners {
		if entry.id == id {
			es.listeners = append(es.listeners[:i:i], es.listeners[i+1:]...)
			return true
		}
	}

	return false
}

func (es *eventSource) fire(ev Event) {
	es.mutex.RLock()
	listeners := es.listeners
	es.mutex.RUnlock()

	for _, entry := range listeners {
		if entry.typ == EventAny || entry.typ == ev.Type {
			entry.listener(ev)
		}
	}
}
