package interceptor

import (
	"context"
	"net/http"
	"sync"
)

type EventType string

const (
	EventInstall  EventType = "install"
	EventActivate EventType = "activate"
	EventFetch    EventType = "fetch"
)

// Event is a lifecycle or fetch event delivered by the host.
type Event struct {
	Type    EventType
	Request *http.Request

	mu          sync.Mutex
	responded   bool
	outcome     Outcome
	err         error
	skipWaiting bool
}

func NewEvent(eventType EventType) *Event {
	return &Event{Type: eventType}
}

func NewFetchEvent(req *http.Request) *Event {
	return &Event{Type: EventFetch, Request: req}
}

// RespondWith supplies the response of a fetch event. Only the first call counts.
func (e *Event) RespondWith(outcome Outcome, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.responded {
		return
	}
	e.responded = true
	e.outcome = outcome
	e.err = err
}

// Responded reports whether a handler answered the event.
// An unanswered fetch event takes the default network path.
func (e *Event) Responded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.responded
}

func (e *Event) Outcome() (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome, e.err
}

// SkipWaiting asks the host to activate the installing agent without waiting
// for the current controller to be released.
func (e *Event) SkipWaiting() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipWaiting = true
}

func (e *Event) SkipWaitingRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skipWaiting
}

type Handler func(ctx context.Context, event *Event) error

// Dispatcher maps event types to handlers. It is one version of the agent.
type Dispatcher struct {
	version  string
	mu       sync.RWMutex
	handlers map[EventType]Handler
}

func NewDispatcher(version string) *Dispatcher {
	return &Dispatcher{
		version:  version,
		handlers: make(map[EventType]Handler),
	}
}

func (d *Dispatcher) Version() string {
	return d.version
}

// Register sets the handler for eventType, replacing any previous one.
func (d *Dispatcher) Register(eventType EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = handler
}

// Dispatch runs the handler registered for the event's type.
// An event with no handler is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	d.mu.RLock()
	handler, ok := d.handlers[event.Type]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	return handler(ctx, event)
}

// Bind registers the manager's install, activate and fetch handlers on a
// new dispatcher versioned after the manager's partition names.
func Bind(m *Manager) *Dispatcher {
	d := NewDispatcher(m.Version())

	d.Register(EventInstall, func(ctx context.Context, event *Event) error {
		if err := m.Initialize(ctx); err != nil {
			return err
		}
		event.SkipWaiting()
		return nil
	})

	d.Register(EventActivate, func(ctx context.Context, event *Event) error {
		_, err := m.ReconcilePartitions(ctx, m.AllowList())
		return err
	})

	d.Register(EventFetch, func(ctx context.Context, event *Event) error {
		outcome, err := m.HandleRequest(ctx, event.Request)
		if outcome.Handled {
			event.RespondWith(outcome, err)
		}
		return nil
	})

	return d
}
