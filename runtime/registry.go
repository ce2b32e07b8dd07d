// Package runtime hosts the change-broadcast engine: the subscription
// registry, the change notifier and the fan-out dispatcher. It carries
// no domain rules; it moves committed mutations to interested
// connections.
package runtime

import (
	"sync"

	"github.com/google/uuid"

	"msgboard/contract"
	"msgboard/domain"
)

type Set map[uuid.UUID]struct{}

// Registry is the single piece of shared mutable state touched by every
// connection. It maps connections to their outbound sinks and resource
// classes to their current member sets.
type Registry struct {
	mu       sync.RWMutex
	Sinks    map[uuid.UUID]contract.EventSink
	Members  map[domain.Resource]Set
	resCount map[uuid.UUID]int
}

func NewRegistry() *Registry {
	return &Registry{
		Sinks:    make(map[uuid.UUID]contract.EventSink),
		Members:  make(map[domain.Resource]Set),
		resCount: make(map[uuid.UUID]int),
	}
}

// Subscribe registers a connection's sink and adds it to the resource's
// member set. Subscribing twice is a no-op: membership is a set, and
// the sink is simply re-recorded.
func (r *Registry) Subscribe(connID uuid.UUID, resource domain.Resource, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sinks[connID] = sink

	members, ok := r.Members[resource]
	if !ok {
		members = make(Set)
		r.Members[resource] = members
	}
	if _, already := members[connID]; !already {
		members[connID] = struct{}{}
		r.resCount[connID]++
	}
}

// Unsubscribe removes the connection from the resource's member set.
// Unsubscribing when not subscribed is a no-op. The sink itself stays
// registered until DropConnection, because the connection may hold
// subscriptions to other resources.
func (r *Registry) Unsubscribe(connID uuid.UUID, resource domain.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.Members[resource]
	if !ok {
		return
	}
	if _, subscribed := members[connID]; !subscribed {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.Members, resource)
	}
	r.resCount[connID]--
	if r.resCount[connID] <= 0 {
		delete(r.resCount, connID)
		delete(r.Sinks, connID)
	}
}

// SubscribersFor returns a snapshot of the live sinks currently
// subscribed to the resource. The slice is owned by the caller; later
// registry changes don't affect it.
func (r *Registry) SubscribersFor(resource domain.Resource) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.Members[resource]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if sink, exists := r.Sinks[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// DropConnection removes the connection from every member set and
// forgets its sink, all under one lock so no snapshot can observe a
// half-torn-down connection. Called exactly once, on disconnect.
func (r *Registry) DropConnection(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sinks, connID)
	delete(r.resCount, connID)
	for resource, members := range r.Members {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.Members, resource)
		}
	}
}
