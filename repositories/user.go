package repositories

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"msgboard/domain"
	apperrors "msgboard/errors"
)

const (
	userPrefix     = "user:"
	usernamePrefix = "username:"
)

// UserRepository stores accounts under "user:{id}" with a
// "username:{name}" index entry pointing back at the id. Uniqueness of
// usernames is enforced inside the write transaction.
type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB, seq *badger.Sequence) *UserRepository {
	return &UserRepository{db: db, seq: seq}
}

func userKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", userPrefix, id)
}

func usernameKey(username string) []byte {
	return []byte(usernamePrefix + strings.ToLower(username))
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// storedUser is the on-disk shape. domain.User hides the password hash
// from every JSON encoder, so the record needs its own tags.
type storedUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func toStoredUser(user domain.User) storedUser {
	return storedUser{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
}

func fromStoredUser(record storedUser) domain.User {
	return domain.User{
		ID:           record.ID,
		Username:     record.Username,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}
}

func (r *UserRepository) Create(username, passwordHash string) (domain.User, error) {
	id, err := r.seq.Next()
	if err != nil {
		return domain.User{}, fmt.Errorf("allocating user id: %w", err)
	}
	if id == 0 {
		if id, err = r.seq.Next(); err != nil {
			return domain.User{}, fmt.Errorf("allocating user id: %w", err)
		}
	}

	user := domain.User{
		ID:           int64(id),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    nowUTC(),
	}
	bytes, err := json.Marshal(toStoredUser(user))
	if err != nil {
		return domain.User{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(usernameKey(username))
		switch err {
		case badger.ErrKeyNotFound:
			// free to take
		case nil:
			return apperrors.ErrUsernameTaken
		default:
			return err
		}
		if err := txn.Set(userKey(user.ID), bytes); err != nil {
			return err
		}
		return txn.Set(usernameKey(username), []byte(strconv.FormatInt(user.ID, 10)))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(username string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrNotFound
			}
			return err
		}
		var id int64
		err = item.Value(func(value []byte) error {
			id, err = strconv.ParseInt(string(value), 10, 64)
			return err
		})
		if err != nil {
			return err
		}

		record, err := txn.Get(userKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrNotFound
			}
			return err
		}
		return record.Value(func(value []byte) error {
			var stored storedUser
			if err := json.Unmarshal(value, &stored); err != nil {
				return err
			}
			user = fromStoredUser(stored)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
