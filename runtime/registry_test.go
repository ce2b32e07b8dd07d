package runtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"msgboard/domain"
)

type recordingSink struct {
	payloads [][]byte
	full     bool
}

func (s *recordingSink) Offer(payload []byte) bool {
	if s.full {
		return false
	}
	s.payloads = append(s.payloads, payload)
	return true
}

func TestRegistry_Subscribe_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()
	sink := &recordingSink{}

	// Given no connection is registered
	req.Empty(registry.Sinks)
	req.Empty(registry.Members)

	// When a connection subscribes
	registry.Subscribe(connID, domain.ResourceMessage, sink)

	// Then it is a member and its sink resolvable
	req.Len(registry.Sinks, 1)
	req.Len(registry.Members, 1)
	req.Contains(registry.Members[domain.ResourceMessage], connID)
	req.Len(registry.SubscribersFor(domain.ResourceMessage), 1)
	req.Contains(registry.SubscribersFor(domain.ResourceMessage), sink)
}

func TestRegistry_Subscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()
	sink := &recordingSink{}

	// When the connection subscribes twice in a row
	registry.Subscribe(connID, domain.ResourceMessage, sink)
	registry.Subscribe(connID, domain.ResourceMessage, sink)

	// Then the registry looks exactly as after a single subscribe
	req.Len(registry.SubscribersFor(domain.ResourceMessage), 1)
	req.Len(registry.Members[domain.ResourceMessage], 1)
}

func TestRegistry_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()

	registry.Subscribe(connID, domain.ResourceMessage, &recordingSink{})

	// When unsubscribing twice, the second call is a no-op success
	registry.Unsubscribe(connID, domain.ResourceMessage)
	registry.Unsubscribe(connID, domain.ResourceMessage)

	req.Empty(registry.Sinks)
	req.Empty(registry.Members)
	req.Nil(registry.SubscribersFor(domain.ResourceMessage))
}

func TestRegistry_Unsubscribe_When_Never_Subscribed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Unsubscribe(uuid.New(), domain.ResourceMessage)

	req.Empty(registry.Sinks)
	req.Empty(registry.Members)
}

func TestRegistry_Membership_Until_Unsubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID1 := uuid.New()
	connID2 := uuid.New()
	sink1 := &recordingSink{}
	sink2 := &recordingSink{}

	// Given two subscribed connections
	registry.Subscribe(connID1, domain.ResourceMessage, sink1)
	registry.Subscribe(connID2, domain.ResourceMessage, sink2)
	req.Len(registry.SubscribersFor(domain.ResourceMessage), 2)

	// When one unsubscribes
	registry.Unsubscribe(connID1, domain.ResourceMessage)

	// Then only the other remains a member
	subscribers := registry.SubscribersFor(domain.ResourceMessage)
	req.Len(subscribers, 1)
	req.Contains(subscribers, sink2)
}

func TestRegistry_DropConnection_Removes_All_Subscriptions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()
	other := uuid.New()
	otherSink := &recordingSink{}

	registry.Subscribe(connID, domain.ResourceMessage, &recordingSink{})
	registry.Subscribe(connID, domain.Resource("presence"), &recordingSink{})
	registry.Subscribe(other, domain.ResourceMessage, otherSink)

	// When the connection disconnects
	registry.DropConnection(connID)

	// Then it is gone from every resource, the other connection untouched
	req.NotContains(registry.Sinks, connID)
	req.Nil(registry.SubscribersFor(domain.Resource("presence")))
	subscribers := registry.SubscribersFor(domain.ResourceMessage)
	req.Len(subscribers, 1)
	req.Contains(subscribers, otherSink)
}

func TestRegistry_Snapshot_Is_Detached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()
	sink := &recordingSink{}

	registry.Subscribe(connID, domain.ResourceMessage, sink)
	snapshot := registry.SubscribersFor(domain.ResourceMessage)
	registry.DropConnection(connID)

	// The earlier snapshot keeps its entries; new lookups see the drop
	req.Len(snapshot, 1)
	req.Nil(registry.SubscribersFor(domain.ResourceMessage))
}
