// Package workspace bundles the managers of one owner and serializes the
// requests that touch them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lifeos/internal/models"
	"lifeos/internal/notes"
	"lifeos/internal/settings"
	"lifeos/internal/storage"
	"lifeos/internal/tasks"
)

// Workspace holds every manager of one owner. Callers hold Lock while they
// use the managers.
type Workspace struct {
	mu sync.Mutex

	Owner    string
	Projects *tasks.Projects
	Tasks    *tasks.Tasks
	Notes    *notes.Manager
	Settings *settings.Settings
	Drafts   *notes.AutoSaver
}

// Lock serializes access to the workspace.
func (w *Workspace) Lock() { w.mu.Lock() }

// Unlock releases the workspace.
func (w *Workspace) Unlock() { w.mu.Unlock() }

// ArchiveView lists everything that has been archived.
type ArchiveView struct {
	Tasks        []models.Task        `json:"tasks"`
	Notes        []models.Note        `json:"notes"`
	NoteProjects []models.NoteProject `json:"note_projects"`
	Projects     []models.Project     `json:"projects"`
}

// Archive collects archived tasks, notes and note projects together with
// every task project for reference.
func (w *Workspace) Archive() ArchiveView {
	archived := true
	view := ArchiveView{
		Tasks:        w.Tasks.Query(tasks.Filter{Archived: &archived}, tasks.SortOrder),
		Notes:        w.Notes.ArchivedNotes(),
		NoteProjects: w.Notes.ProjectsArchived(true),
		Projects:     w.Projects.List(),
	}
	if view.NoteProjects == nil {
		view.NoteProjects = []models.NoteProject{}
	}
	return view
}

// Flush rewrites every collection of the workspace in canonical form.
func (w *Workspace) Flush(ctx context.Context) error {
	return errors.Join(
		w.Projects.Flush(ctx),
		w.Tasks.Flush(ctx),
		w.Notes.Flush(ctx),
	)
}

// UpdateNote applies an explicit edit. New content replaces any pending
// draft of the note. The caller holds the workspace lock.
func (w *Workspace) UpdateNote(ctx context.Context, noteID string, patch notes.NotePatch) (models.Note, error) {
	if patch.Content != nil {
		w.Drafts.Discard(noteID)
	}
	return w.Notes.UpdateNote(ctx, noteID, patch)
}

// DeleteNote removes a note together with its pending draft. The caller
// holds the workspace lock.
func (w *Workspace) DeleteNote(ctx context.Context, noteID string) error {
	w.Drafts.Discard(noteID)
	return w.Notes.DeleteNote(ctx, noteID)
}

// saveDraft is the AutoSaver callback. The AutoSaver holds the workspace
// lock while it runs.
func (w *Workspace) saveDraft(ctx context.Context, noteID, content string) error {
	_, err := w.Notes.UpdateNote(ctx, noteID, notes.NotePatch{Content: &content})
	return err
}

// Options configures how workspaces are built.
type Options struct {
	Logger        *slog.Logger
	Now           func() time.Time
	Mirror        func(owner string) notes.Mirror
	AutosaveDelay time.Duration
}

// Open loads every collection of owner from store.
func Open(ctx context.Context, store storage.Store, owner string, opts Options) (*Workspace, error) {
	if err := storage.ValidOwner(owner); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("owner", owner))

	taskOpts := tasks.Options{Logger: logger, Now: opts.Now}
	projects, err := tasks.LoadProjects(ctx, store, owner, taskOpts)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	taskSet, err := tasks.LoadTasks(ctx, store, owner, taskOpts)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	projects.SetCascade(taskSet)

	noteOpts := notes.Options{Logger: logger, Now: opts.Now}
	if opts.Mirror != nil {
		noteOpts.Mirror = opts.Mirror(owner)
	}
	noteSet, err := notes.Load(ctx, store, owner, noteOpts)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	prefs, err := settings.Load(ctx, store, owner)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	w := &Workspace{
		Owner:    owner,
		Projects: projects,
		Tasks:    taskSet,
		Notes:    noteSet,
		Settings: prefs,
	}
	delay := opts.AutosaveDelay
	if delay <= 0 {
		delay = time.Second
	}
	w.Drafts = notes.NewAutoSaver(delay, w.saveDraft, logger)
	w.Drafts.SetLocker(w)
	return w, nil
}
