package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"github.com/samber/lo"
	"sync"
)

type Set map[domain.ConnectionID]struct{}

// ChannelRegistry maps live connections to their sinks and channel keys to subscribed connections.
// It knows nothing about identities or groups, only about who listens where.
type ChannelRegistry struct {
	mu          sync.RWMutex
	sessions    map[domain.ConnectionID]contract.EventSink // connection -> sink
	subscribers map[domain.ChannelKey]Set                  // channel -> connections
	channels    map[domain.ConnectionID]map[domain.ChannelKey]struct{}
}

var _ contract.IChannelRegistry = (*ChannelRegistry)(nil)

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		sessions:    make(map[domain.ConnectionID]contract.EventSink),
		subscribers: make(map[domain.ChannelKey]Set),
		channels:    make(map[domain.ConnectionID]map[domain.ChannelKey]struct{}),
	}
}

// Attach registers the outbound sink of a connection. Attaching twice replaces the sink.
func (r *ChannelRegistry) Attach(connID domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = sink
}

// Detach removes the connection and every subscription it holds.
// No empty sets are left behind.
func (r *ChannelRegistry) Detach(connID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connID)
	for channel := range r.channels[connID] {
		r.removeLocked(connID, channel)
	}
	delete(r.channels, connID)
}

// Subscribe is a no-op for an unknown connection.
func (r *ChannelRegistry) Subscribe(connID domain.ConnectionID, channel domain.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; !ok {
		return
	}
	if _, ok := r.subscribers[channel]; !ok {
		r.subscribers[channel] = make(Set)
	}
	r.subscribers[channel][connID] = struct{}{}

	if _, ok := r.channels[connID]; !ok {
		r.channels[connID] = make(map[domain.ChannelKey]struct{})
	}
	r.channels[connID][channel] = struct{}{}
}

func (r *ChannelRegistry) Unsubscribe(connID domain.ConnectionID, channel domain.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID, channel)
	if owned, ok := r.channels[connID]; ok {
		delete(owned, channel)
		if len(owned) == 0 {
			delete(r.channels, connID)
		}
	}
}

func (r *ChannelRegistry) removeLocked(connID domain.ConnectionID, channel domain.ChannelKey) {
	members, ok := r.subscribers[channel]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.subscribers, channel)
	}
}

func (r *ChannelRegistry) Sink(connID domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[connID]
	return sink, ok
}

// SinksFor resolves the subscribers of a channel into sinks, skipping the excluded connections.
// Returns nil if nobody listens on the channel.
func (r *ChannelRegistry) SinksFor(channel domain.ChannelKey, except ...domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.subscribers[channel]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if lo.Contains(except, connID) {
			continue
		}
		if sink, exists := r.sessions[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func (r *ChannelRegistry) All() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

func (r *ChannelRegistry) IsSubscribed(connID domain.ConnectionID, channel domain.ChannelKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribers[channel][connID]
	return ok
}

func (r *ChannelRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *ChannelRegistry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
