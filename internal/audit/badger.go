package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	recordPrefix = "audit:"
	actorPrefix  = "audit_actor:"
	entityPrefix = "audit_entity:"
)

// BadgerStore persists records under "audit:<ulid>" keys. ULIDs sort by
// creation time, so a reverse prefix scan yields newest first. Actor and
// entity ids are indexed as "audit_actor:<actor>\x00<ulid>" and
// "audit_entity:<entity>\x00<ulid>" so filtered listings only visit
// matching records.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The caller owns db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Name() string { return "badger" }

func (s *BadgerStore) Append(ctx context.Context, rec *Record) error {
	if err := validateForAppend(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(recordPrefix+rec.ID), data); err != nil {
			return err
		}
		if err := txn.Set(indexKey(actorPrefix, rec.ActorID, rec.ID), nil); err != nil {
			return err
		}
		if rec.AffectedEntityID != nil {
			return txn.Set(indexKey(entityPrefix, *rec.AffectedEntityID, rec.ID), nil)
		}
		return nil
	})
}

func indexPrefix(prefix, value string) []byte {
	return []byte(prefix + value + "\x00")
}

func indexKey(prefix, value, id string) []byte {
	return append(indexPrefix(prefix, value), id...)
}

func (s *BadgerStore) List(ctx context.Context, q Query) (*Page, error) {
	page := &Page{Records: []Record{}, Page: q.Page, Limit: q.Limit}
	offset := q.Offset()

	scan := []byte(recordPrefix)
	indexed := true
	switch {
	case q.ActorID != "":
		scan = indexPrefix(actorPrefix, q.ActorID)
	case q.AffectedEntityID != "":
		scan = indexPrefix(entityPrefix, q.AffectedEntityID)
	default:
		indexed = false
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = scan
		opts.PrefetchValues = !indexed
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), scan...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(scan); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			if indexed {
				id := string(item.Key()[len(scan):])
				var err error
				if item, err = txn.Get([]byte(recordPrefix + id)); err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return fmt.Errorf("load audit record %s: %w", id, err)
				}
			}

			var rec Record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode audit record %s: %w", item.Key(), err)
			}
			if !q.matches(&rec) {
				continue
			}
			if page.Total >= offset && len(page.Records) < q.Limit {
				page.Records = append(page.Records, rec)
			}
			page.Total++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Close is a no-op, the database is closed by its owner.
func (s *BadgerStore) Close() error { return nil }
