package storage

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"lifeos/internal/apperr"
)

// Records is the authoritative in-memory map of one owner's collection. It
// remembers insertion order so entities with equal display order keep a
// stable sequence, and writes every change through to the Store.
type Records[T any] struct {
	store  Store
	scope  Scope
	logger *slog.Logger

	items  map[string]*T
	seq    map[string]int
	next   int
	legacy map[string][]LegacyKey

	id     func(*T) string
	order  func(*T) int
	encode func(*T) Document
}

// NewRecords creates an empty record set for scope. id returns an entity's
// id, order its display order and encode its stored document.
func NewRecords[T any](
	store Store,
	scope Scope,
	logger *slog.Logger,
	id func(*T) string,
	order func(*T) int,
	encode func(*T) Document,
) *Records[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Records[T]{
		store:  store,
		scope:  scope,
		logger: logger,
		items:  map[string]*T{},
		seq:    map[string]int{},
		legacy: map[string][]LegacyKey{},
		id:     id,
		order:  order,
		encode: encode,
	}
}

// Scope returns the scope the records persist to.
func (r *Records[T]) Scope() Scope { return r.scope }

// Load reads the raw documents of the scope.
func (r *Records[T]) Load(ctx context.Context) ([]Document, error) {
	docs, err := r.store.Load(ctx, r.scope)
	if err != nil {
		r.logger.Error("load failed",
			slog.String("scope", r.scope.String()),
			slog.String("error", err.Error()))
		return nil, apperr.Persistence(r.scope.Collection.Name, err)
	}
	return docs, nil
}

// Add inserts v in memory, replacing any entity with the same id, and
// returns the stored pointer.
func (r *Records[T]) Add(v T) *T {
	p := &v
	id := r.id(p)
	if _, ok := r.items[id]; !ok {
		r.seq[id] = r.next
		r.next++
	}
	r.items[id] = p
	return p
}

// Retire remembers documents stored under legacy keys. Each one is removed
// by the first successful save that writes or deletes its canonical id.
func (r *Records[T]) Retire(keys []LegacyKey) {
	for _, k := range keys {
		r.legacy[k.ID] = append(r.legacy[k.ID], k)
	}
}

// Get returns the stored entity for id.
func (r *Records[T]) Get(id string) (*T, bool) {
	p, ok := r.items[id]
	return p, ok
}

// Remove deletes id from memory and reports whether it was present.
func (r *Records[T]) Remove(id string) bool {
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	delete(r.seq, id)
	return true
}

// Len returns the number of entities.
func (r *Records[T]) Len() int { return len(r.items) }

// Sorted returns the stored pointers by display order, then insertion.
func (r *Records[T]) Sorted() []*T {
	out := make([]*T, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *T) int {
		return cmp.Or(
			cmp.Compare(r.order(a), r.order(b)),
			cmp.Compare(r.seq[r.id(a)], r.seq[r.id(b)]),
		)
	})
	return out
}

// Values returns copies of the entities in Sorted order.
func (r *Records[T]) Values() []T {
	sorted := r.Sorted()
	out := make([]T, len(sorted))
	for i, p := range sorted {
		out[i] = *p
	}
	return out
}

// Save persists the given changed entities and deleted ids together with a
// snapshot of the whole collection. A failed write is logged and returned
// as a persistence error; memory keeps the mutation.
func (r *Records[T]) Save(ctx context.Context, changed []*T, deleted []string) error {
	change := Change{Deletes: deleted}
	seen := make(map[string]struct{}, len(changed))
	var retiring []string
	for _, p := range changed {
		id := r.id(p)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		change.Upserts = append(change.Upserts, r.encode(p))
		retiring = append(retiring, id)
	}
	retiring = append(retiring, deleted...)
	for _, id := range retiring {
		change.Retire = append(change.Retire, r.legacy[id]...)
	}

	sorted := r.Sorted()
	change.Snapshot = make([]Document, len(sorted))
	for i, p := range sorted {
		change.Snapshot[i] = r.encode(p)
	}

	if err := r.store.Persist(ctx, r.scope, change); err != nil {
		r.logger.Error("persist failed",
			slog.String("scope", r.scope.String()),
			slog.Int("upserts", len(change.Upserts)),
			slog.Int("deletes", len(change.Deletes)),
			slog.String("error", err.Error()))
		return apperr.Persistence(r.scope.Collection.Name, err)
	}
	for _, id := range retiring {
		delete(r.legacy, id)
	}
	return nil
}

// SaveAll rewrites every entity, which turns migrated records into their
// canonical stored form.
func (r *Records[T]) SaveAll(ctx context.Context) error {
	return r.Save(ctx, r.Sorted(), nil)
}
