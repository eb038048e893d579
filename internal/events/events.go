package events

import (
	"fmt"
	"sync"

	console "marketplace/internal/utils/logger"
)

var log = console.New("EVENTS")

// EventHandler reacts to an in-process domain event. Handlers run on their
// own goroutine; a panic is logged and does not reach the emitter.
type EventHandler func(interface{})

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus fans in-process events out to registered handlers.
type EventBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
	inflight sync.WaitGroup
}

var defaultBus = NewEventBus()

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]subscription),
	}
}

// On registers handler for event and returns a func that removes it.
func (bus *EventBus) On(event string, handler EventHandler) (off func()) {
	bus.mu.Lock()
	bus.nextID++
	id := bus.nextID
	bus.handlers[event] = append(bus.handlers[event], subscription{id: id, handler: handler})
	bus.mu.Unlock()

	log.Debug("Registered handler for event: %s", event)
	return func() { bus.off(event, id) }
}

func (bus *EventBus) off(event string, id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	subs := bus.handlers[event]
	for i, s := range subs {
		if s.id == id {
			bus.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(bus.handlers[event]) == 0 {
		delete(bus.handlers, event)
	}
}

// Emit triggers an event with the given data
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	subs := append([]subscription(nil), bus.handlers[event]...)
	bus.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	log.Debug("Emitting event: %s to %d handlers", event, len(subs))

	bus.inflight.Add(len(subs))
	for _, s := range subs {
		go func(h EventHandler) {
			defer bus.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("Panic in event handler for %s", fmt.Errorf("panic: %v", r), event)
				}
			}()
			h(data)
		}(s.handler)
	}
}

// Drain blocks until every handler started so far has returned.
func (bus *EventBus) Drain() {
	bus.inflight.Wait()
}

// On registers handler on the process wide bus.
func On(event string, handler EventHandler) (off func()) {
	return defaultBus.On(event, handler)
}

func Emit(event string, data interface{}) {
	defaultBus.Emit(event, data)
}

// Drain waits for the handlers running on the process wide bus.
func Drain() {
	defaultBus.Drain()
}
