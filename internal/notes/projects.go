package notes

import (
	"context"
	"strings"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/normalize"
)

const projectEntity = "note project"

// ProjectInput holds the fields accepted when creating a note project.
type ProjectInput struct {
	Name        string
	Description string
	Tags        []string
}

// ProjectPatch lists the updatable note-project fields.
type ProjectPatch struct {
	Name        *string
	Description *string
	Tags        *[]string
}

// Projects returns every note project by order.
func (m *Manager) Projects() []models.NoteProject {
	return m.projects.Values()
}

// ProjectsArchived returns the note projects whose archived flag equals
// archived.
func (m *Manager) ProjectsArchived(archived bool) []models.NoteProject {
	var out []models.NoteProject
	for _, p := range m.projects.Values() {
		if p.Archived == archived {
			out = append(out, p)
		}
	}
	return out
}

// Project returns the note project with id.
func (m *Manager) Project(id string) (models.NoteProject, error) {
	p, ok := m.projects.Get(id)
	if !ok {
		return models.NoteProject{}, apperr.NotFound(projectEntity, id)
	}
	return *p, nil
}

// nameTaken reports whether another project than self already uses name.
func (m *Manager) nameTaken(name, self string) bool {
	for _, p := range m.projects.Sorted() {
		if p.ProjectID != self && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// CreateProject adds a note project. Names are unique per owner.
func (m *Manager) CreateProject(ctx context.Context, in ProjectInput) (models.NoteProject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.NoteProject{}, apperr.Validation(projectEntity, "name", "is required")
	}
	if m.nameTaken(name, "") {
		return models.NoteProject{}, apperr.Conflict(projectEntity, name, "name already exists")
	}

	p := m.projects.Add(models.NoteProject{
		ProjectID:   m.opts.NewID(),
		Name:        name,
		Description: in.Description,
		Tags:        normalize.Tags(in.Tags),
		Order:       m.projects.Len(),
		CreatedAt:   m.now(),
	})
	return *p, m.projects.Save(ctx, []*models.NoteProject{p}, nil)
}

// UpdateProject merges patch into a note project. The system project cannot
// be renamed.
func (m *Manager) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (models.NoteProject, error) {
	p, ok := m.projects.Get(id)
	if !ok {
		return models.NoteProject{}, apperr.NotFound(projectEntity, id)
	}

	oldName := p.Name
	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		switch {
		case name == "":
			return models.NoteProject{}, apperr.Validation(projectEntity, "name", "must not be empty")
		case p.IsSystem && name != p.Name:
			return models.NoteProject{}, apperr.Reserved(projectEntity, id, "cannot be renamed")
		case m.nameTaken(name, id):
			return models.NoteProject{}, apperr.Conflict(projectEntity, name, "name already exists")
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Tags != nil {
		p.Tags = normalize.Tags(*patch.Tags)
	}
	if err := m.projects.Save(ctx, []*models.NoteProject{p}, nil); err != nil {
		return *p, err
	}
	if p.Name != oldName {
		m.mirror("rename folder", func(mr Mirror) error { return mr.RenameFolder(oldName, p.Name) })
	}
	return *p, nil
}

// DeleteProject removes a note project together with its notes.
func (m *Manager) DeleteProject(ctx context.Context, id string) error {
	if id == models.SystemProjectID {
		return apperr.Reserved(projectEntity, id, "cannot be deleted")
	}
	p, ok := m.projects.Get(id)
	if !ok {
		return apperr.NotFound(projectEntity, id)
	}
	name := p.Name

	var deleted []string
	for _, n := range m.notes.Sorted() {
		if n.ProjectID == id {
			deleted = append(deleted, n.NoteID)
		}
	}

	m.projects.Remove(id)
	if err := m.projects.Save(ctx, nil, []string{id}); err != nil {
		return err
	}
	if len(deleted) > 0 {
		for _, noteID := range deleted {
			m.notes.Remove(noteID)
		}
		if err := m.notes.Save(ctx, nil, deleted); err != nil {
			return err
		}
	}
	m.mirror("remove folder", func(mr Mirror) error { return mr.RemoveFolder(name) })
	return nil
}

// ReorderProjects assigns order = index to every known id. The system
// project keeps its position.
func (m *Manager) ReorderProjects(ctx context.Context, ids []string) error {
	var changed []*models.NoteProject
	for i, id := range ids {
		p, ok := m.projects.Get(id)
		if !ok || p.IsSystem {
			continue
		}
		if p.Order != i {
			p.Order = i
			changed = append(changed, p)
		}
	}
	return m.projects.Save(ctx, changed, nil)
}

// ArchiveProject sets the archived flag of a note project and all its
// notes.
func (m *Manager) ArchiveProject(ctx context.Context, id string, archived bool) (models.NoteProject, error) {
	if id == models.SystemProjectID {
		return models.NoteProject{}, apperr.Reserved(projectEntity, id, "cannot be archived")
	}
	p, ok := m.projects.Get(id)
	if !ok {
		return models.NoteProject{}, apperr.NotFound(projectEntity, id)
	}
	if p.Archived != archived {
		p.Archived = archived
		if err := m.projects.Save(ctx, []*models.NoteProject{p}, nil); err != nil {
			return *p, err
		}
	}

	var changed []*models.Note
	for _, n := range m.notes.Sorted() {
		if n.ProjectID == id && n.Archived != archived {
			n.Archived = archived
			changed = append(changed, n)
		}
	}
	if len(changed) > 0 {
		if err := m.notes.Save(ctx, changed, nil); err != nil {
			return *p, err
		}
	}
	return *p, nil
}

// NotesCount returns how many notes, archived or not, belong to projectID.
func (m *Manager) NotesCount(projectID string) int {
	n := 0
	for _, note := range m.notes.Sorted() {
		if note.ProjectID == projectID {
			n++
		}
	}
	return n
}
