// Package storage defines the adapter between the managers and a durable
// backend.
//
// A backend stores collections of schemaless documents per owner. Managers
// describe every mutation as a Change carrying both the changed documents and
// a snapshot of the whole collection; whole-file backends write the snapshot,
// document backends apply only the upserts and deletes.
package storage

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Document is one stored record. Values are whatever the backend decodes:
// strings, float64 or int64 numbers, bools, nil, []any, nested maps and
// time.Time.
type Document = map[string]any

// Collection names a stored collection and the field holding each
// document's id.
type Collection struct {
	Name    string
	IDField string
}

// Known collections.
var (
	Projects     = Collection{Name: "projects", IDField: "project_id"}
	Tasks        = Collection{Name: "tasks", IDField: "task_id"}
	NoteProjects = Collection{Name: "note_projects", IDField: "project_id"}
	Notes        = Collection{Name: "notes", IDField: "note_id"}
	Settings     = Collection{Name: "user_settings", IDField: "settings_id"}
)

// Collections lists every known collection.
var Collections = []Collection{Projects, Tasks, NoteProjects, Notes, Settings}

// Scope addresses one owner's view of a collection.
type Scope struct {
	Owner      string
	Collection Collection
}

func (s Scope) String() string {
	return s.Owner + "/" + s.Collection.Name
}

// Change describes one mutation of a collection.
type Change struct {
	// Upserts holds the created or modified documents.
	Upserts []Document

	// Deletes holds the ids of removed documents.
	Deletes []string

	// Snapshot holds every document of the collection after the change.
	Snapshot []Document

	// Retire lists documents stored under a legacy identifier whose
	// canonical form is upserted or deleted in the same change. Document
	// backends remove them before applying Upserts.
	Retire []LegacyKey
}

// LegacyKey locates a document stored under a non-canonical identifier:
// either a non-string value in the id field, or only the "id" alias.
type LegacyKey struct {
	// ID is the canonical id the document was normalized to.
	ID    string
	Field string
	Value any
}

// Matches reports whether doc is the legacy document k points at. A
// document already carrying the canonical id never matches.
func (k LegacyKey) Matches(c Collection, doc Document) bool {
	v, ok := doc[k.Field]
	if !ok || !reflect.DeepEqual(v, k.Value) {
		return false
	}
	if k.Field == c.IDField {
		return true
	}
	current, _ := doc[c.IDField].(string)
	return current != k.ID
}

// Empty reports whether the change carries nothing to write.
func (c Change) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0 && len(c.Retire) == 0 && c.Snapshot == nil
}

// Store is implemented by every backend. Persist must either write the
// change completely or return an error.
type Store interface {
	Load(ctx context.Context, scope Scope) ([]Document, error)
	Persist(ctx context.Context, scope Scope, change Change) error
	Close() error
}

// DocumentID returns the id of doc within collection c.
func DocumentID(c Collection, doc Document) (string, error) {
	id, ok := doc[c.IDField].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%s document without %s", c.Name, c.IDField)
	}
	return id, nil
}

// ValidOwner rejects owner identities that cannot be used as a path
// segment or a key prefix.
func ValidOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("empty owner")
	}
	if owner == "." || owner == ".." || strings.ContainsAny(owner, `/\`+"\x00") {
		return fmt.Errorf("invalid owner %q", owner)
	}
	return nil
}
