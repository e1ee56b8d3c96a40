// Package assoc provides association storage: records addressed by a model
// tag and a scope string, with zero or one record per key.
package assoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"
)

// Model is the kind of entity a record is associated with.
type Model string

const (
	ModelRoom Model = "ROOM"
	ModelUser Model = "USER"
	ModelMisc Model = "MISC"
)

// Key addresses a single record.
type Key struct {
	Model Model
	ID    string
}

// NewKey creates a key for a model and scope.
func NewKey(m Model, id string) Key {
	return Key{Model: m, ID: id}
}

func (k Key) String() string {
	return string(k.Model) + ":" + k.ID
}

// ErrBadRecord is returned when a stored record cannot be decoded.
var ErrBadRecord = errors.New("assoc: malformed record")

// Store is a key to record persistence layer. Records are opaque JSON
// documents. Implementations must be safe for concurrent use.
type Store interface {
	// Read returns the record at key, or nil with a nil error if there is none.
	Read(ctx context.Context, key Key) ([]byte, error)
	// Write stores a record at key, replacing any existing one.
	Write(ctx context.Context, key Key, rec []byte) error
	// Insert stores a record at key only if no record exists there. It reports
	// whether the record was written.
	Insert(ctx context.Context, key Key, rec []byte) (bool, error)
	// Remove deletes the record at key. Removing an absent record is not an
	// error.
	Remove(ctx context.Context, key Key) error
}

// Get reads and decodes the record at key. It returns nil if there is no
// record.
func Get[T any](ctx context.Context, s Store, key Key) (*T, error) {
	b, err := s.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("couldn't read %v: %w", key, err)
	}
	if b == nil {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(b, v); err != nil {
		return nil, fmt.Errorf("%w at %v: %v", ErrBadRecord, key, err)
	}
	return v, nil
}

// Put encodes v and writes it at key.
func Put(ctx context.Context, s Store, key Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("couldn't encode record for %v: %w", key, err)
	}
	if err := s.Write(ctx, key, b); err != nil {
		return fmt.Errorf("couldn't write %v: %w", key, err)
	}
	return nil
}

// Reserve encodes v and inserts it at key if nothing is there yet.
func Reserve(ctx context.Context, s Store, key Key, v any) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("couldn't encode record for %v: %w", key, err)
	}
	ok, err := s.Insert(ctx, key, b)
	if err != nil {
		return false, fmt.Errorf("couldn't insert %v: %w", key, err)
	}
	return ok, nil
}
