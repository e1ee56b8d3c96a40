// Package filestore implements association storage as a single YAML file.
// It suits small single-process deployments.
package filestore

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/codegangsta/triphelper/internal/assoc"
)

// entry is one persisted record
type entry struct {
	Model  string `yaml:"model"`
	ID     string `yaml:"id"`
	Record string `yaml:"record"`
}

// document is the on-disk layout
type document struct {
	Records []entry `yaml:"records"`
}

// Store keeps every record in memory and rewrites the file on each change
type Store struct {
	fs   afero.Fs
	path string
	recs map[assoc.Key][]byte
	mu   sync.RWMutex
}

var _ assoc.Store = (*Store)(nil)

// Open loads the store at path on fs. A missing file is an empty store.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{
		fs:   fs,
		path: path,
		recs: make(map[assoc.Key][]byte),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the records from disk
func (s *Store) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet, that's fine
			return nil
		}
		return fmt.Errorf("reading store file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing store file: %w", err)
	}
	for _, e := range doc.Records {
		s.recs[assoc.NewKey(assoc.Model(e.Model), e.ID)] = []byte(e.Record)
	}
	return nil
}

// save writes all records to disk (must hold write lock)
func (s *Store) save() error {
	doc := document{Records: make([]entry, 0, len(s.recs))}
	for k, rec := range s.recs {
		doc.Records = append(doc.Records, entry{Model: string(k.Model), ID: k.ID, Record: string(rec)})
	}
	// Stable order keeps diffs of the file readable.
	slices.SortFunc(doc.Records, func(a, b entry) int {
		return cmp.Or(strings.Compare(a.Model, b.Model), strings.Compare(a.ID, b.ID))
	})

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	// Write to a temp file and rename so a crash never leaves half a file.
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, key assoc.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recs[key]), nil
}

func (s *Store) Write(ctx context.Context, key assoc.Key, rec []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, had := s.recs[key]
	s.recs[key] = slices.Clone(rec)
	if err := s.save(); err != nil {
		if had {
			s.recs[key] = old
		} else {
			delete(s.recs, key)
		}
		return err
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, key assoc.Key, rec []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[key]; ok {
		return false, nil
	}
	s.recs[key] = slices.Clone(rec)
	if err := s.save(); err != nil {
		delete(s.recs, key)
		return false, err
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key assoc.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.recs[key]
	if !ok {
		return nil
	}
	delete(s.recs, key)
	if err := s.save(); err != nil {
		s.recs[key] = old
		return err
	}
	return nil
}
