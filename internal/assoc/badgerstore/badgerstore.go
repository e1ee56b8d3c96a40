// Package badgerstore implements association storage in a Badger database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/codegangsta/triphelper/internal/assoc"
)

/*
Key structure:
Model × \x00 × ID
Model tags never contain \x00, so the separator keeps ("ROOM", "x") and
("ROOMx", "") apart.
*/

// Store is an assoc.Store backed by Badger.
type Store struct {
	db *badger.DB
}

var _ assoc.Store = (*Store)(nil)

// New creates a store using db.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func dbkey(k assoc.Key) []byte {
	b := make([]byte, 0, len(k.Model)+1+len(k.ID))
	b = append(b, k.Model...)
	b = append(b, 0)
	b = append(b, k.ID...)
	return b
}

func (s *Store) Read(ctx context.Context, key assoc.Key) ([]byte, error) {
	var rec []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbkey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		rec, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't read record: %w", err)
	}
	return rec, nil
}

func (s *Store) Write(ctx context.Context, key assoc.Key, rec []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbkey(key), rec)
	})
	if err != nil {
		return fmt.Errorf("couldn't write record: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, key assoc.Key, rec []byte) (bool, error) {
	k := dbkey(key)
	for {
		var ok bool
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(k)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, badger.ErrKeyNotFound):
				ok = true
				return txn.Set(k, rec)
			default:
				return err
			}
		})
		if errors.Is(err, badger.ErrConflict) {
			// Another insert committed first. Run again to observe it.
			if err := ctx.Err(); err != nil {
				return false, err
			}
			continue
		}
		if err != nil {
			return false, fmt.Errorf("couldn't insert record: %w", err)
		}
		return ok, nil
	}
}

func (s *Store) Remove(ctx context.Context, key assoc.Key) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbkey(key))
	})
	if err != nil {
		return fmt.Errorf("couldn't remove record: %w", err)
	}
	return nil
}
