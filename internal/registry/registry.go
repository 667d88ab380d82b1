// Package registry tracks connected clients and their topic subscriptions,
// and fans broadcast events out to bounded per-client outbound channels.
package registry

import (
	"sync"

	"lunio/internal/logger"
	"lunio/internal/wire"
)

// OutboundCapacity bounds each client's pending-event channel (spec §5:
// "Event channels are bounded (256-512)").
const OutboundCapacity = 256

// ClientState is one connected session: its identity and the channel its
// write-pump goroutine drains to push frames out over the wire.
type ClientState struct {
	SessionID string
	Outbound  chan wire.Envelope[wire.Event]
}

// Registry is the single source of truth for "who's connected" and "who's
// listening to what", guarded by one mutex held only across pure in-memory
// work (spec §5: never held across I/O).
type Registry struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[string]*ClientState
	topics  map[wire.Topic]map[string]struct{}

	tap func(wire.Event)
}

// New returns an empty registry.
func New(log *logger.Logger) *Registry {
	return &Registry{
		log:     log,
		clients: make(map[string]*ClientState),
		topics:  make(map[wire.Topic]map[string]struct{}),
	}
}

// SetTap installs a function called with every broadcast event, regardless
// of whether any client subscribed to its topic. Used to mirror traffic to
// the admin introspection surface without coupling Broadcast's callers to
// it. A nil tap (the default) disables mirroring.
func (r *Registry) SetTap(tap func(wire.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tap = tap
}

// Register adds a newly connected session and returns its ClientState.
func (r *Registry) Register(sessionID string) *ClientState {
	cs := &ClientState{SessionID: sessionID, Outbound: make(chan wire.Envelope[wire.Event], OutboundCapacity)}
	r.mu.Lock()
	r.clients[sessionID] = cs
	r.mu.Unlock()
	return cs
}

// Remove disconnects a session: it is dropped from clients and every topic
// it was subscribed to, and its outbound channel is closed.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	cs, ok := r.clients[sessionID]
	delete(r.clients, sessionID)
	for _, set := range r.topics {
		delete(set, sessionID)
	}
	r.mu.Unlock()

	if ok {
		close(cs.Outbound)
	}
}

// Subscribe adds sessionID to topic's subscriber set.
func (r *Registry) Subscribe(sessionID string, topic wire.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[sessionID]; !ok {
		return
	}
	set, ok := r.topics[topic]
	if !ok {
		set = make(map[string]struct{})
		r.topics[topic] = set
	}
	set[sessionID] = struct{}{}
}

// Unsubscribe removes sessionID from topic's subscriber set.
func (r *Registry) Unsubscribe(sessionID string, topic wire.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.topics[topic]; ok {
		delete(set, sessionID)
	}
}

// Broadcast sends event to every subscriber of topic. Delivery to a
// disconnected or stalled client is silently dropped (spec §5: broadcast
// never blocks on a slow client); a full channel just loses this event for
// that subscriber.
func (r *Registry) Broadcast(topic wire.Topic, event wire.Event) {
	r.mu.RLock()
	subscribers := make([]*ClientState, 0, len(r.topics[topic]))
	for sessionID := range r.topics[topic] {
		if cs, ok := r.clients[sessionID]; ok {
			subscribers = append(subscribers, cs)
		}
	}
	tap := r.tap
	r.mu.RUnlock()

	if tap != nil {
		tap(event)
	}

	env := wire.Envelope[wire.Event]{Protocol: wire.ProtocolVersion, Payload: event}
	for _, cs := range subscribers {
		select {
		case cs.Outbound <- env:
		default:
			r.log.Warn("registry: dropping %s event for stalled session %s", event.Type, cs.SessionID)
		}
	}
}

// SendTo delivers event to a single session, silently dropping it if the
// session is unknown or its channel is full.
func (r *Registry) SendTo(sessionID string, event wire.Event) {
	r.mu.RLock()
	cs, ok := r.clients[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	env := wire.Envelope[wire.Event]{Protocol: wire.ProtocolVersion, SessionID: sessionID, Payload: event}
	select {
	case cs.Outbound <- env:
	default:
		r.log.Warn("registry: dropping %s event for stalled session %s", event.Type, sessionID)
	}
}

// Get returns the ClientState for sessionID, if it is still connected.
func (r *Registry) Get(sessionID string) (*ClientState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.clients[sessionID]
	return cs, ok
}

// ClientCount reports how many sessions are currently registered.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
