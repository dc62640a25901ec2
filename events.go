package vireo

import "sync"

// EventKind identifies a cross-cutting condition the engine announces.
type EventKind int

const (
	// EventServiceUnavailable is posted when the backend signalled it is
	// temporarily down. The event carries no payload beyond the occurrence.
	EventServiceUnavailable EventKind = iota + 1

	// EventInvalidToken is posted when the server rejected the bearer
	// credential used for a request. The event payload is the bearer token
	// value from the outgoing Authorization header, prefix-stripped, or
	// empty when it could not be recovered.
	EventInvalidToken
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventServiceUnavailable:
		return "service_unavailable"
	case EventInvalidToken:
		return "invalid_token"
	default:
		return "unknown"
	}
}

// Event is a cross-cutting condition announced by the engine. Events are a
// side channel for concerns like token refresh flows and connectivity
// banners; they never replace the completion callback of the request that
// triggered them.
type Event struct {
	// Kind identifies the condition.
	Kind EventKind
	// Token is the rejected bearer token for EventInvalidToken, empty
	// otherwise or when unrecoverable.
	Token string
}

// Notifier receives engine events. Post is fire-and-forget: the engine does
// not wait for delivery and ignores the outcome.
//
// The Hub implementation fans events out to explicit subscribers; the
// natsnotify package publishes them to NATS for process-external consumers.
type Notifier interface {
	Post(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Post calls the function.
func (f NotifierFunc) Post(ev Event) { f(ev) }

// Hub is an observer registry for engine events. It is owned by the host
// application and injected into the engine at construction; subscriptions
// are explicit and tied to the owning context, never a hidden global.
//
// Example:
//
//	hub := vireo.NewHub()
//	sub := hub.Subscribe(func(ev vireo.Event) {
//	    if ev.Kind == vireo.EventInvalidToken {
//	        auth.Refresh(ev.Token)
//	    }
//	})
//	defer sub.Cancel()
//
//	engine, err := vireo.New(vireo.DefaultConfig().WithNotifier(hub))
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewHub creates an event hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Event))}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub  *Hub
	id   int
	once sync.Once
}

// Cancel removes the subscription. Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		delete(s.hub.subs, s.id)
	})
}

// Subscribe registers fn for every subsequent event.
func (h *Hub) Subscribe(fn func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	return &Subscription{hub: h, id: id}
}

// Post delivers the event to every subscriber. A panicking subscriber is
// isolated so it cannot break the others or the posting engine.
func (h *Hub) Post(ev Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() { _ = recover() }()
			fn(ev)
		}()
	}
}
