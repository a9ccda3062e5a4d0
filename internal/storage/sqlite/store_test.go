package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lifeos/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "lifeos.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPersist_UpsertAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	scope := storage.Scope{Owner: "alice", Collection: storage.Tasks}

	err := s.Persist(ctx, scope, storage.Change{Upserts: []storage.Document{
		{"task_id": "1", "title": "one", "created_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"task_id": "2", "title": "two"},
	}})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	err = s.Persist(ctx, scope, storage.Change{
		Upserts: []storage.Document{{"task_id": "1", "title": "uno"}},
		Deletes: []string{"2"},
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	docs, err := s.Load(ctx, scope)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || docs[0]["title"] != "uno" {
		t.Errorf("Load() = %v", docs)
	}
}

func TestLoad_ScopedByOwnerAndCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Persist(ctx, storage.Scope{Owner: "alice", Collection: storage.Projects},
		storage.Change{Upserts: []storage.Document{{"project_id": "general"}}})
	_ = s.Persist(ctx, storage.Scope{Owner: "bob", Collection: storage.Projects},
		storage.Change{Upserts: []storage.Document{{"project_id": "general"}, {"project_id": "work"}}})

	n, err := s.Count(ctx, storage.Scope{Owner: "alice", Collection: storage.Projects})
	if err != nil || n != 1 {
		t.Errorf("alice projects = %d (%v), want 1", n, err)
	}
	n, _ = s.Count(ctx, storage.Scope{Owner: "bob", Collection: storage.Projects})
	if n != 2 {
		t.Errorf("bob projects = %d, want 2", n)
	}
	docs, _ := s.Load(ctx, storage.Scope{Owner: "alice", Collection: storage.Tasks})
	if len(docs) != 0 {
		t.Errorf("alice tasks = %v, want none", docs)
	}
}

func TestPersist_RejectsDocumentWithoutID(t *testing.T) {
	s := openTestStore(t)
	err := s.Persist(context.Background(), storage.Scope{Owner: "a", Collection: storage.Notes},
		storage.Change{Upserts: []storage.Document{{"title": "no id"}}})
	if err == nil {
		t.Fatal("expected error for document without id")
	}
}
