package ezdb

import (
	"context"
	"log/slog"
	"sync"
)

// --- Event System ---

// EventType identifies a notification emitted by the engine or a Handle.
type EventType string

const (
	EventRetentionStarted  EventType = "RetentionStarted"
	EventRetentionFinished EventType = "RetentionFinished"
	EventStatusChanged     EventType = "StatusChanged"
	EventError             EventType = "Error"
)

// Event carries the payload of a notification. Fields not relevant to the
// event type are left zero.
type Event struct {
	Type      EventType
	Table     string
	Count     int64
	Threshold int64
	Target    int64
	Online    bool
	Err       error
	Message   string
}

// EventListener receives events. Listeners run synchronously, in
// registration order, in the order events are produced.
type EventListener func(ctx context.Context, ev Event) error

type listenerRegistry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

func (r *listenerRegistry) register(t EventType, l EventListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[EventType][]EventListener)
	}
	r.listeners[t] = append(r.listeners[t], l)
}

func (r *listenerRegistry) trigger(ctx context.Context, logger *slog.Logger, ev Event) {
	r.mu.RLock()
	listeners := r.listeners[ev.Type]
	r.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, ev); err != nil {
			logger.Warn("event listener failed", slog.String("event", string(ev.Type)), slog.String("table", ev.Table), slog.Any("error", err))
		}
	}
}

// RegisterListener adds a listener for one event type.
func (e *Engine) RegisterListener(t EventType, l EventListener) {
	e.listeners.register(t, l)
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	e.listeners.trigger(ctx, e.logger, ev)
}
