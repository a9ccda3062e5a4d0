// Package memory is an in-process storage.Store used by tests. It applies
// changes like a document backend and can be told to fail.
package memory

import (
	"context"
	"sync"

	"lifeos/internal/storage"
)

type entry struct {
	id  string
	doc storage.Document
}

// Store keeps documents in memory, ordered by first insertion.
type Store struct {
	mu       sync.Mutex
	data     map[storage.Scope][]entry
	fail     error
	persists map[storage.Scope]int
	last     map[storage.Scope]storage.Change
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data:     map[storage.Scope][]entry{},
		persists: map[storage.Scope]int{},
		last:     map[storage.Scope]storage.Change{},
	}
}

// Seed replaces the documents of scope without counting a persist call.
func (s *Store) Seed(scope storage.Scope, docs ...storage.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]entry, 0, len(docs))
	for _, d := range docs {
		id, _ := d[scope.Collection.IDField].(string)
		entries = append(entries, entry{id: id, doc: clone(d)})
	}
	s.data[scope] = entries
}

// FailWith makes every following Load and Persist return err. A nil err
// clears the failure.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Persists returns how many Persist calls reached scope.
func (s *Store) Persists(scope storage.Scope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persists[scope]
}

// LastChange returns the most recent change persisted to scope.
func (s *Store) LastChange(scope storage.Scope) storage.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[scope]
}

// Load returns copies of the stored documents.
func (s *Store) Load(_ context.Context, scope storage.Scope) ([]storage.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]storage.Document, 0, len(s.data[scope]))
	for _, e := range s.data[scope] {
		out = append(out, clone(e.doc))
	}
	return out, nil
}

// Persist removes retired legacy documents, then applies upserts and
// deletes.
func (s *Store) Persist(_ context.Context, scope storage.Scope, change storage.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists[scope]++
	if s.fail != nil {
		return s.fail
	}
	s.last[scope] = change

	entries := s.data[scope]
	if len(change.Retire) > 0 {
		kept := entries[:0]
		for _, e := range entries {
			if !retired(scope.Collection, change.Retire, e.doc) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	for _, doc := range change.Upserts {
		id, err := storage.DocumentID(scope.Collection, doc)
		if err != nil {
			return err
		}
		replaced := false
		for i := range entries {
			if entries[i].id == id {
				entries[i].doc = clone(doc)
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry{id: id, doc: clone(doc)})
		}
	}
	for _, id := range change.Deletes {
		for i := range entries {
			if entries[i].id == id {
				entries = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
	s.data[scope] = entries
	return nil
}

func retired(c storage.Collection, keys []storage.LegacyKey, doc storage.Document) bool {
	for _, k := range keys {
		if k.Matches(c, doc) {
			return true
		}
	}
	return false
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(d storage.Document) storage.Document {
	out := make(storage.Document, len(d))
	for k, v := range d {
		if tags, ok := v.([]string); ok {
			cp := make([]string, len(tags))
			copy(cp, tags)
			v = cp
		}
		out[k] = v
	}
	return out
}
