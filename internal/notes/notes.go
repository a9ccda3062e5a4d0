package notes

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/normalize"
)

const noteEntity = "note"

// QuickNoteTitle names the note that QuickAppend writes to.
const QuickNoteTitle = "QuickNote"

// NoteInput holds the fields accepted when creating a note.
type NoteInput struct {
	ProjectID   string
	Title       string
	Content     string
	Status      string
	Tags        []string
	Description string
}

// NotePatch lists the updatable note fields.
type NotePatch struct {
	Title       *string
	Content     *string
	Status      *string
	Tags        *[]string
	Description *string
}

// Note returns the note with id.
func (m *Manager) Note(id string) (models.Note, error) {
	n, ok := m.notes.Get(id)
	if !ok {
		return models.Note{}, apperr.NotFound(noteEntity, id)
	}
	return *n, nil
}

// NoteByFilename finds a note by its project and filename.
func (m *Manager) NoteByFilename(projectID, filename string) (models.Note, error) {
	for _, n := range m.notes.Sorted() {
		if n.ProjectID == projectID && strings.EqualFold(n.Filename, filename) {
			return *n, nil
		}
	}
	return models.Note{}, apperr.NotFound(noteEntity, projectID+"/"+filename)
}

// Notes returns the non-archived notes of projectID, or of every project
// when projectID is empty, most recently updated first.
func (m *Manager) Notes(projectID string) []models.Note {
	return m.collect(func(n models.Note) bool {
		return !n.Archived && (projectID == "" || n.ProjectID == projectID)
	})
}

// ArchivedNotes returns every archived note, most recently updated first.
func (m *Manager) ArchivedNotes() []models.Note {
	return m.collect(func(n models.Note) bool { return n.Archived })
}

func (m *Manager) collect(keep func(models.Note) bool) []models.Note {
	out := []models.Note{}
	for _, n := range m.notes.Values() {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Note) int {
		return b.LastUpdated.Compare(a.LastUpdated)
	})
	return out
}

// CreateNote adds a note to an existing project with a filename that is
// unique within that project.
func (m *Manager) CreateNote(ctx context.Context, in NoteInput) (models.Note, error) {
	project, ok := m.projects.Get(in.ProjectID)
	if !ok {
		return models.Note{}, apperr.NotFound(projectEntity, in.ProjectID)
	}
	title := cleanTitle(in.Title)
	if title == "" {
		title = defaultTitle
	}

	now := m.now()
	n := m.notes.Add(models.Note{
		NoteID:      m.opts.NewID(),
		ProjectID:   project.ProjectID,
		Title:       title,
		Filename:    uniqueFilename(title, m.filenameTaken(project.ProjectID, "")),
		Content:     in.Content,
		Status:      models.ParseNoteStatus(in.Status),
		Tags:        normalize.Tags(in.Tags),
		Description: in.Description,
		Order:       m.NotesCount(project.ProjectID),
		CreatedAt:   now,
		LastUpdated: now,
	})
	if err := m.notes.Save(ctx, []*models.Note{n}, nil); err != nil {
		return *n, err
	}
	m.mirror("write note", func(mr Mirror) error { return mr.WriteNote(*project, *n) })
	return *n, nil
}

// UpdateNote merges patch into a note. A new title derives a new unique
// filename.
func (m *Manager) UpdateNote(ctx context.Context, id string, patch NotePatch) (models.Note, error) {
	n, ok := m.notes.Get(id)
	if !ok {
		return models.Note{}, apperr.NotFound(noteEntity, id)
	}
	var title string
	if patch.Title != nil {
		if title = cleanTitle(*patch.Title); title == "" {
			return models.Note{}, apperr.Validation(noteEntity, "title", "must not be empty")
		}
	}

	oldFilename := n.Filename
	if patch.Title != nil && title != n.Title {
		n.Title = title
		n.Filename = uniqueFilename(title, m.filenameTaken(n.ProjectID, n.NoteID))
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Status != nil {
		n.Status = models.ParseNoteStatus(*patch.Status)
	}
	if patch.Tags != nil {
		n.Tags = normalize.Tags(*patch.Tags)
	}
	if patch.Description != nil {
		n.Description = *patch.Description
	}
	n.LastUpdated = m.now()

	if err := m.notes.Save(ctx, []*models.Note{n}, nil); err != nil {
		return *n, err
	}
	if project, ok := m.projects.Get(n.ProjectID); ok {
		m.mirror("write note", func(mr Mirror) error {
			if oldFilename != n.Filename {
				if err := mr.RemoveNote(*project, oldFilename); err != nil {
					return err
				}
			}
			return mr.WriteNote(*project, *n)
		})
	}
	return *n, nil
}

// MoveNote moves a note into another project, keeping its filename unique
// there.
func (m *Manager) MoveNote(ctx context.Context, id, targetProjectID string) (models.Note, error) {
	n, ok := m.notes.Get(id)
	if !ok {
		return models.Note{}, apperr.NotFound(noteEntity, id)
	}
	target, ok := m.projects.Get(targetProjectID)
	if !ok {
		return models.Note{}, apperr.NotFound(projectEntity, targetProjectID)
	}
	if n.ProjectID == targetProjectID {
		return *n, nil
	}

	source, hadSource := m.projects.Get(n.ProjectID)
	oldFilename := n.Filename
	n.ProjectID = target.ProjectID
	n.Filename = uniqueFilename(n.Title, m.filenameTaken(target.ProjectID, n.NoteID))
	n.Order = m.NotesCount(target.ProjectID) - 1
	n.LastUpdated = m.now()

	if err := m.notes.Save(ctx, []*models.Note{n}, nil); err != nil {
		return *n, err
	}
	m.mirror("move note", func(mr Mirror) error {
		if hadSource {
			if err := mr.RemoveNote(*source, oldFilename); err != nil {
				return err
			}
		}
		return mr.WriteNote(*target, *n)
	})
	return *n, nil
}

// ReorderNotes assigns order = index to the listed notes of projectID.
// Unknown ids and notes of other projects are ignored.
func (m *Manager) ReorderNotes(ctx context.Context, projectID string, ids []string) error {
	if _, ok := m.projects.Get(projectID); !ok {
		return apperr.NotFound(projectEntity, projectID)
	}
	var changed []*models.Note
	for i, id := range ids {
		n, ok := m.notes.Get(id)
		if !ok || n.ProjectID != projectID {
			continue
		}
		if n.Order != i {
			n.Order = i
			changed = append(changed, n)
		}
	}
	return m.notes.Save(ctx, changed, nil)
}

// DeleteNote removes a note.
func (m *Manager) DeleteNote(ctx context.Context, id string) error {
	n, ok := m.notes.Get(id)
	if !ok {
		return apperr.NotFound(noteEntity, id)
	}
	note := *n
	m.notes.Remove(id)
	if err := m.notes.Save(ctx, nil, []string{id}); err != nil {
		return err
	}
	if project, ok := m.projects.Get(note.ProjectID); ok {
		m.mirror("remove note", func(mr Mirror) error { return mr.RemoveNote(*project, note.Filename) })
	}
	return nil
}

// ArchiveNote sets the archived flag of a note.
func (m *Manager) ArchiveNote(ctx context.Context, id string, archived bool) (models.Note, error) {
	n, ok := m.notes.Get(id)
	if !ok {
		return models.Note{}, apperr.NotFound(noteEntity, id)
	}
	if n.Archived == archived {
		return *n, nil
	}
	n.Archived = archived
	return *n, m.notes.Save(ctx, []*models.Note{n}, nil)
}

// QuickAppend appends a timestamped block to the QuickNote of the system
// project, creating the note on first use.
func (m *Manager) QuickAppend(ctx context.Context, content string) (models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Note{}, apperr.Validation(noteEntity, "content", "is required")
	}
	system, err := m.ensureSystem(ctx)
	if err != nil {
		return models.Note{}, err
	}

	existing, err := m.NoteByFilename(system.ProjectID, QuickNoteTitle+noteExt)
	if err != nil {
		return m.CreateNote(ctx, NoteInput{
			ProjectID: system.ProjectID,
			Title:     QuickNoteTitle,
			Content:   content,
		})
	}

	stamp := m.opts.Now().Format("2006-01-02 15:04")
	appended := strings.TrimSpace(existing.Content) + "\n\n---\n[" + stamp + "] " + content
	return m.UpdateNote(ctx, existing.NoteID, NotePatch{Content: &appended})
}

// ProjectNotes is one entry of the structure view.
type ProjectNotes struct {
	Project models.NoteProject
	Notes   []models.Note
}

// MarshalJSON nests the notes inside the project object.
func (p ProjectNotes) MarshalJSON() ([]byte, error) {
	doc := p.Project.Document()
	doc["notes"] = p.Notes
	return json.Marshal(doc)
}

// Structure returns every non-archived project with its non-archived notes,
// sorted by order and then by most recent update. Note content is left
// out.
func (m *Manager) Structure() []ProjectNotes {
	byProject := map[string][]models.Note{}
	for _, n := range m.notes.Values() {
		if n.Archived {
			continue
		}
		n.Content = ""
		byProject[n.ProjectID] = append(byProject[n.ProjectID], n)
	}

	out := []ProjectNotes{}
	for _, p := range m.projects.Values() {
		if p.Archived {
			continue
		}
		notes := byProject[p.ProjectID]
		if notes == nil {
			notes = []models.Note{}
		}
		slices.SortStableFunc(notes, func(a, b models.Note) int {
			return cmp.Or(
				cmp.Compare(a.Order, b.Order),
				b.LastUpdated.Compare(a.LastUpdated),
			)
		})
		out = append(out, ProjectNotes{Project: p, Notes: notes})
	}
	return out
}
