// Package notes manages the writing subsystem: note projects (folders) and
// the notes inside them.
package notes

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lifeos/internal/models"
	"lifeos/internal/normalize"
	"lifeos/internal/storage"
)

// Mirror receives note changes after they are persisted, for example to
// keep a folder-per-project tree of text files in sync. Mirror failures are
// logged and never fail the operation.
type Mirror interface {
	WriteNote(project models.NoteProject, note models.Note) error
	RemoveNote(project models.NoteProject, filename string) error
	RenameFolder(oldName, newName string) error
	RemoveFolder(name string) error
}

// Options carries the collaborators of a Manager.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
	Mirror Mirror
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Manager owns one owner's note projects and notes.
type Manager struct {
	opts     Options
	projects *storage.Records[models.NoteProject]
	notes    *storage.Records[models.Note]
}

// Load reads the owner's note projects and notes and makes sure the system
// project exists.
func Load(ctx context.Context, store storage.Store, owner string, opts Options) (*Manager, error) {
	opts = opts.withDefaults()
	m := &Manager{
		opts: opts,
		projects: storage.NewRecords(store,
			storage.Scope{Owner: owner, Collection: storage.NoteProjects},
			opts.Logger,
			func(p *models.NoteProject) string { return p.ProjectID },
			func(p *models.NoteProject) int { return p.Order },
			func(p *models.NoteProject) storage.Document { return p.Document() }),
		notes: storage.NewRecords(store,
			storage.Scope{Owner: owner, Collection: storage.Notes},
			opts.Logger,
			func(n *models.Note) string { return n.NoteID },
			func(n *models.Note) int { return n.Order },
			func(n *models.Note) storage.Document { return n.Document() }),
	}

	norm := normalize.New(opts.Logger).WithClock(opts.Now)

	docs, err := m.projects.Load(ctx)
	if err != nil {
		return nil, err
	}
	projects, report := norm.NoteProjects(docs)
	report.Log(ctx, opts.Logger)
	for _, p := range projects {
		m.projects.Add(p)
	}
	m.projects.Retire(report.Rekeyed)

	docs, err = m.notes.Load(ctx)
	if err != nil {
		return nil, err
	}
	notes, report := norm.Notes(docs)
	report.Log(ctx, opts.Logger)
	for _, n := range notes {
		m.notes.Add(n)
	}
	m.notes.Retire(report.Rekeyed)

	if _, err := m.ensureSystem(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureSystem returns the system project, creating it on first use.
func (m *Manager) ensureSystem(ctx context.Context) (*models.NoteProject, error) {
	if p, ok := m.projects.Get(models.SystemProjectID); ok {
		return p, nil
	}
	p := m.projects.Add(models.NoteProject{
		ProjectID: models.SystemProjectID,
		Name:      "System",
		Tags:      []string{},
		Order:     0,
		CreatedAt: m.now(),
		IsSystem:  true,
	})
	m.opts.Logger.Info("created system note project")
	return p, m.projects.Save(ctx, []*models.NoteProject{p}, nil)
}

// Flush rewrites both collections in canonical form.
func (m *Manager) Flush(ctx context.Context) error {
	if err := m.projects.SaveAll(ctx); err != nil {
		return err
	}
	return m.notes.SaveAll(ctx)
}

func (m *Manager) now() time.Time {
	return models.Timestamp(m.opts.Now())
}

func (m *Manager) mirror(op string, fn func(Mirror) error) {
	if m.opts.Mirror == nil {
		return
	}
	if err := fn(m.opts.Mirror); err != nil {
		m.opts.Logger.Warn("note mirror failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
}
