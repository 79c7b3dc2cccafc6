package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ Repository = (*BadgerStore)(nil)

const (
	accountIDPrefix    = "account:id:"
	accountEmailPrefix = "account:email:"
)

// storedAccount carries the password hash, which Account hides from JSON.
type storedAccount struct {
	Account
	PasswordHash string `json:"passwordHash"`
}

// BadgerStore persists accounts under "account:id:<id>" with an
// "account:email:<email>" -> id index.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The caller owns db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Create stores acc, assigning an ID when missing.
func (s *BadgerStore) Create(ctx context.Context, acc Account) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acc.Email = normalizeEmail(acc.Email)
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	data, err := json.Marshal(storedAccount{Account: acc, PasswordHash: acc.PasswordHash})
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(accountEmailPrefix + acc.Email))
		switch {
		case err == nil:
			return ErrConflict
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set([]byte(accountIDPrefix+acc.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(accountEmailPrefix+acc.Email), []byte(acc.ID))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent transaction claimed the same email first.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *BadgerStore) FindByID(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var acc *Account
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		acc, err = loadAccount(txn, id)
		return err
	})
	return acc, err
}

func (s *BadgerStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var acc *Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountEmailPrefix + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		acc, err = loadAccount(txn, string(id))
		return err
	})
	return acc, err
}

func loadAccount(txn *badger.Txn, id string) (*Account, error) {
	item, err := txn.Get([]byte(accountIDPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var stored storedAccount
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}

	acc := stored.Account
	acc.PasswordHash = stored.PasswordHash
	return &acc, nil
}
