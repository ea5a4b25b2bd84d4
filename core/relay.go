package orchestration

import (
	"sync"

	"github.com/koscakluka/ema-realtime/core/events"
)

// Observer receives every notification emitted by the orchestrator.
type Observer func(events.Event)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// relay multicasts notifications to its observers in subscription order.
// Observers are called synchronously on the emitting goroutine and must not
// block.
type relay struct {
	mu        sync.RWMutex
	nextID    int
	observers []subscription
}

type subscription struct {
	id       int
	observer Observer
}

func (r *relay) subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, subscription{id: id, observer: observer})

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(id) })
	}
}

func (r *relay) unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.observers {
		if sub.id == id {
			r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *relay) emit(event events.Event) {
	r.mu.RLock()
	observers := make([]Observer, 0, len(r.observers))
	for _, sub := range r.observers {
		observers = append(observers, sub.observer)
	}
	r.mu.RUnlock()

	logger.Debug("notification", "namespace", event.Kind().Namespace(), "kind", event.Kind(), "observers", len(observers))
	for _, observer := range observers {
		observer(event)
	}
}

// newCallbackObserver adapts the callback options into an observer.
func newCallbackObserver(callbacks notificationCallbacks) Observer {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SessionStatus:
			if callbacks.onStatus != nil {
				callbacks.onStatus(typedEvent.Text)
			}
		case events.SessionInitializing:
			if callbacks.onSessionInitializing != nil {
				callbacks.onSessionInitializing(typedEvent.Initializing)
			}
		case events.AssistantResponseUpdated:
			if callbacks.onResponseUpdate != nil {
				callbacks.onResponseUpdate(typedEvent.Text, typedEvent.Animate)
			}
		case events.AssistantResponseComplete:
			if callbacks.onResponseComplete != nil {
				callbacks.onResponseComplete(typedEvent.Complete)
			}
		case events.ConversationTurnRecorded:
			if callbacks.onTurnRecorded != nil {
				callbacks.onTurnRecorded(typedEvent)
			}
		}
	}
}
