// Package repositories implements the entity stores on BadgerDB.
// Message mutations trigger the change notifier synchronously after the
// transaction commits, so subscribers can never observe an event whose
// cause is not durable yet.
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"msgboard/contract"
	"msgboard/domain"
	apperrors "msgboard/errors"
)

const msgPrefix = "msg:"

type MessageRepository struct {
	db            *badger.DB
	seq           *badger.Sequence
	notifier      contract.IChangeNotifier
	log           *slog.Logger
	limitMessages *int
	maxTextLen    int
}

func NewMessageRepository(db *badger.DB, seq *badger.Sequence, notifier contract.IChangeNotifier,
	log *slog.Logger, limitMessages *int, maxTextLen int) *MessageRepository {
	return &MessageRepository{
		db:            db,
		seq:           seq,
		notifier:      notifier,
		log:           log,
		limitMessages: limitMessages,
		maxTextLen:    maxTextLen,
	}
}

// msgKey formats the storage key. Ids are sequence-assigned and so
// strictly increasing; 20-digit zero padding makes lexicographical key
// order equal creation order, which List exploits with a reverse scan.
func msgKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", msgPrefix, id)
}

func (r *MessageRepository) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.ErrEmptyText
	}
	if r.maxTextLen > 0 && len(text) > r.maxTextLen {
		return apperrors.ErrTextTooLong
	}
	return nil
}

func (r *MessageRepository) nextID() (int64, error) {
	id, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	// Sequences start at zero; keep ids positive so zero can mean "unset".
	if id == 0 {
		id, err = r.seq.Next()
	}
	return int64(id), err
}

// Create stores a new message attributed to the actor and, once the
// transaction has committed, hands the mutation to the change notifier.
func (r *MessageRepository) Create(actor domain.Identity, text string) (domain.Message, error) {
	if actor.ID == 0 {
		return domain.Message{}, apperrors.ErrAuthRequired
	}
	if err := r.validateText(text); err != nil {
		return domain.Message{}, err
	}

	id, err := r.nextID()
	if err != nil {
		return domain.Message{}, fmt.Errorf("allocating message id: %w", err)
	}

	msg := domain.Message{
		ID:        id,
		UserID:    actor.ID,
		Username:  actor.Username,
		Text:      text,
		CreatedAt: nowUTC(),
	}

	bytes, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(msg.ID), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}

	r.notifier.OnMutation(domain.Created, nil, &msg)
	return msg, nil
}

// Update replaces the text of an existing message. Only the author may
// update; id, author and creation time are immutable.
func (r *MessageRepository) Update(actor domain.Identity, id int64, text string) (domain.Message, error) {
	if actor.ID == 0 {
		return domain.Message{}, apperrors.ErrAuthRequired
	}
	if err := r.validateText(text); err != nil {
		return domain.Message{}, err
	}

	var before, after domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		current, err := readMessage(txn, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.ID {
			return apperrors.ErrForbidden
		}
		before = current
		after = current
		after.Text = text

		bytes, err := json.Marshal(after)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(id), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}

	r.notifier.OnMutation(domain.Updated, &before, &after)
	return after, nil
}

// Delete removes the author's own message.
func (r *MessageRepository) Delete(actor domain.Identity, id int64) error {
	if actor.ID == 0 {
		return apperrors.ErrAuthRequired
	}

	var before domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		current, err := readMessage(txn, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.ID {
			return apperrors.ErrForbidden
		}
		before = current
		return txn.Delete(msgKey(id))
	})
	if err != nil {
		return err
	}

	r.notifier.OnMutation(domain.Deleted, &before, nil)
	return nil
}

// List returns messages in descending creation order using a reverse
// prefix scan; the key padding guarantees the order without sorting.
// It stops once the configured limit is reached.
func (r *MessageRepository) List() ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(msgPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the largest possible key so the reverse walk starts
		// at the newest message.
		seekKey := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			var msg domain.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func readMessage(txn *badger.Txn, id int64) (domain.Message, error) {
	item, err := txn.Get(msgKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return domain.Message{}, apperrors.ErrNotFound
		}
		return domain.Message{}, err
	}
	var msg domain.Message
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &msg)
	})
	return msg, err
}
