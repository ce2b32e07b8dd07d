//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"msgboard/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one connection's outbound delivery path. Offer must not
// block: it reports false when the payload could not be enqueued (full
// or closed path) so the dispatcher can account for the drop and move on.
type EventSink interface {
	Offer(payload []byte) bool
}

// IRegistry tracks which live connections want change events for which
// resource class. All methods are safe for concurrent use.
type IRegistry interface {
	Subscribe(connID uuid.UUID, resource domain.Resource, sink EventSink)
	Unsubscribe(connID uuid.UUID, resource domain.Resource)
	SubscribersFor(resource domain.Resource) []EventSink
	DropConnection(connID uuid.UUID)
}

// IPublisher accepts committed change events for fan-out.
type IPublisher interface {
	Publish(evt domain.ChangeEvent)
}

// IChangeNotifier is invoked by the entity store, synchronously and
// exactly once per successful mutation, after the transaction commits.
// Exactly one of before/after is nil for creates and deletes.
type IChangeNotifier interface {
	OnMutation(kind domain.ChangeKind, before, after *domain.Message)
}

// IMessageStore is the entity store contract for messages. Mutations
// validate their input, enforce ownership, and trigger the change
// notifier after the commit; List returns messages in descending
// creation order.
type IMessageStore interface {
	Create(actor domain.Identity, text string) (domain.Message, error)
	Update(actor domain.Identity, id int64, text string) (domain.Message, error)
	Delete(actor domain.Identity, id int64) error
	List() ([]domain.Message, error)
}

// IUserStore persists accounts.
type IUserStore interface {
	Create(username, passwordHash string) (domain.User, error)
	GetByUsername(username string) (domain.User, error)
}

// IBoard is the action surface consumed by the transports.
type IBoard interface {
	Messages() ([]domain.Payload, error)
	Post(actor domain.Identity, text string) (domain.Payload, error)
	Edit(actor domain.Identity, id int64, text string) (domain.Payload, error)
	Remove(actor domain.Identity, id int64) error
}
