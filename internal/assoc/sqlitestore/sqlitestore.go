// Package sqlitestore implements association storage in an SQLite database.
package sqlitestore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/codegangsta/triphelper/internal/assoc"
)

// Store is an assoc.Store backed by an SQL database.
type Store struct {
	db *sqlitex.Pool
}

var _ assoc.Store = (*Store)(nil)

// Open opens an association store in an SQL database that has already been
// initialized with Init.
func Open(ctx context.Context, db *sqlitex.Pool) (*Store, error) {
	return &Store{db: db}, nil
}

// Init creates the association table in an SQL database.
// For convenience, it accepts either a single connection or a pool.
func Init[DB *sqlite.Conn | *sqlitex.Pool](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		if err != nil {
			return fmt.Errorf("couldn't get connection from pool: %w", err)
		}
		defer db.Put(conn)
	}
	const schema = `CREATE TABLE IF NOT EXISTS assoc (
		model  TEXT NOT NULL,
		id     TEXT NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (model, id)
	) STRICT, WITHOUT ROWID`
	return sqlitex.ExecuteTransient(conn, schema, nil)
}

func (s *Store) Read(ctx context.Context, key assoc.Key) ([]byte, error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to read record: %w", err)
	}
	var rec []byte
	opts := sqlitex.ExecOptions{
		Args: []any{string(key.Model), key.ID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rec = []byte(stmt.ColumnText(0))
			return nil
		},
	}
	err = sqlitex.Execute(conn, `SELECT record FROM assoc WHERE model=? AND id=?`, &opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't read record: %w", err)
	}
	return rec, nil
}

func (s *Store) Write(ctx context.Context, key assoc.Key, rec []byte) error {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to write record: %w", err)
	}
	opts := sqlitex.ExecOptions{Args: []any{string(key.Model), key.ID, string(rec)}}
	err = sqlitex.Execute(conn, `INSERT INTO assoc (model, id, record) VALUES (?, ?, ?) ON CONFLICT (model, id) DO UPDATE SET record=excluded.record`, &opts)
	if err != nil {
		return fmt.Errorf("couldn't write record: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, key assoc.Key, rec []byte) (bool, error) {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return false, fmt.Errorf("couldn't get connection to insert record: %w", err)
	}
	opts := sqlitex.ExecOptions{Args: []any{string(key.Model), key.ID, string(rec)}}
	err = sqlitex.Execute(conn, `INSERT INTO assoc (model, id, record) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, &opts)
	if err != nil {
		return false, fmt.Errorf("couldn't insert record: %w", err)
	}
	return conn.Changes() > 0, nil
}

func (s *Store) Remove(ctx context.Context, key assoc.Key) error {
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to remove record: %w", err)
	}
	opts := sqlitex.ExecOptions{Args: []any{string(key.Model), key.ID}}
	err = sqlitex.Execute(conn, `DELETE FROM assoc WHERE model=? AND id=?`, &opts)
	if err != nil {
		return fmt.Errorf("couldn't remove record: %w", err)
	}
	return nil
}
