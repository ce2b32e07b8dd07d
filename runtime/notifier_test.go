package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"msgboard/domain"
)

type capturingPublisher struct {
	events []domain.ChangeEvent
}

func (p *capturingPublisher) Publish(evt domain.ChangeEvent) {
	p.events = append(p.events, evt)
}

func TestNotifier_Create_Carries_Public_Projection(t *testing.T) {
	req := require.New(t)
	publisher := &capturingPublisher{}
	notifier := NewNotifier(publisher)

	createdAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	msg := domain.Message{ID: 5, UserID: 2, Username: "alice", Text: "hi", CreatedAt: createdAt}

	notifier.OnMutation(domain.Created, nil, &msg)

	req.Len(publisher.events, 1)
	evt := publisher.events[0]
	req.Equal(domain.Created, evt.Kind)
	req.Equal(domain.ResourceMessage, evt.Resource)
	req.Equal(msg.Public(), evt.Data)
	// For creates the sequence marker is the creation time itself
	req.Equal(createdAt, evt.At)
}

func TestNotifier_Delete_Snapshots_State_Before_Mutation(t *testing.T) {
	req := require.New(t)
	publisher := &capturingPublisher{}
	notifier := NewNotifier(publisher)

	msg := domain.Message{ID: 9, UserID: 2, Username: "alice", Text: "bye", CreatedAt: time.Now().UTC()}

	notifier.OnMutation(domain.Deleted, &msg, nil)

	req.Len(publisher.events, 1)
	req.Equal(domain.Deleted, publisher.events[0].Kind)
	req.Equal(msg.Public(), publisher.events[0].Data)
}

func TestNotifier_Update_Uses_Mutation_Time_Marker(t *testing.T) {
	req := require.New(t)
	publisher := &capturingPublisher{}
	notifier := NewNotifier(publisher)
	frozen := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	notifier.now = func() time.Time { return frozen }

	before := domain.Message{ID: 5, UserID: 2, Username: "alice", Text: "hi", CreatedAt: frozen.Add(-time.Hour)}
	after := before
	after.Text = "hello"

	notifier.OnMutation(domain.Updated, &before, &after)

	req.Len(publisher.events, 1)
	req.Equal("hello", publisher.events[0].Data.Text)
	req.Equal(frozen, publisher.events[0].At)
}
