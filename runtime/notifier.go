package runtime

import (
	"time"

	"msgboard/contract"
	"msgboard/domain"
)

// Notifier turns a committed store mutation into a normalized
// ChangeEvent and hands it to the publisher. The store calls OnMutation
// synchronously after its transaction commits; a failed mutation never
// reaches this point, so an event can never precede its cause.
type Notifier struct {
	publisher contract.IPublisher
	now       func() time.Time
}

func NewNotifier(publisher contract.IPublisher) *Notifier {
	return &Notifier{publisher: publisher, now: time.Now}
}

// OnMutation builds the event from the public projection of the entity.
// For deletes the snapshot is the state before the mutation; otherwise
// the state after.
func (n *Notifier) OnMutation(kind domain.ChangeKind, before, after *domain.Message) {
	snapshot := after
	if kind == domain.Deleted {
		snapshot = before
	}
	if snapshot == nil {
		return
	}

	at := n.now().UTC()
	if kind == domain.Created {
		at = snapshot.CreatedAt
	}

	n.publisher.Publish(domain.ChangeEvent{
		Kind:     kind,
		Resource: domain.ResourceMessage,
		Data:     snapshot.Public(),
		At:       at,
	})
}
