package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"lifeos/internal/storage"
)

// Registry lazily opens one Workspace per owner over a shared store.
type Registry struct {
	store storage.Store
	opts  Options

	mu     sync.Mutex
	spaces map[string]*Workspace
}

// NewRegistry creates an empty Registry.
func NewRegistry(store storage.Store, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{store: store, opts: opts, spaces: map[string]*Workspace{}}
}

// Get returns the owner's workspace, loading it on first use. A failed load
// is not cached.
func (r *Registry) Get(ctx context.Context, owner string) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.spaces[owner]; ok {
		return w, nil
	}
	w, err := Open(ctx, r.store, owner, r.opts)
	if err != nil {
		return nil, err
	}
	r.spaces[owner] = w
	r.opts.Logger.Info("workspace loaded", slog.String("owner", owner))
	return w, nil
}

// Close saves pending drafts of every loaded workspace.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	spaces := make([]*Workspace, 0, len(r.spaces))
	for _, w := range r.spaces {
		spaces = append(spaces, w)
	}
	r.mu.Unlock()

	var errs []error
	for _, w := range spaces {
		if err := w.Drafts.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
