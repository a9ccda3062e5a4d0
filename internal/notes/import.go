package notes

import (
	"context"
	"log/slog"
	"time"

	"lifeos/internal/models"
)

// ImportedFolder is a folder of legacy text notes.
type ImportedFolder struct {
	Name  string
	Notes []ImportedNote
}

// ImportedNote is one legacy text file.
type ImportedNote struct {
	Title    string
	Content  string
	Modified time.Time
}

// ImportReport counts what Import did.
type ImportReport struct {
	Projects int
	Notes    int
	Skipped  int
}

// Import adds legacy folders as note projects. A folder whose name matches
// an existing project is merged into it, and a note whose filename already
// exists there is skipped.
func (m *Manager) Import(ctx context.Context, folders []ImportedFolder) (ImportReport, error) {
	var report ImportReport
	var changedProjects []*models.NoteProject
	var changedNotes []*models.Note

	for _, f := range folders {
		project := m.projectByName(f.Name)
		if project == nil {
			project = m.projects.Add(models.NoteProject{
				ProjectID: m.opts.NewID(),
				Name:      f.Name,
				Tags:      []string{},
				Order:     m.projects.Len(),
				CreatedAt: m.now(),
			})
			changedProjects = append(changedProjects, project)
			report.Projects++
		}

		for _, in := range f.Notes {
			title := cleanTitle(in.Title)
			if title == "" {
				report.Skipped++
				continue
			}
			if m.filenameTaken(project.ProjectID, "")(title + noteExt) {
				report.Skipped++
				m.opts.Logger.Debug("skipping existing note",
					slog.String("project", project.Name),
					slog.String("title", title))
				continue
			}
			modified := m.now()
			if !in.Modified.IsZero() {
				modified = models.Timestamp(in.Modified)
			}
			changedNotes = append(changedNotes, m.notes.Add(models.Note{
				NoteID:      m.opts.NewID(),
				ProjectID:   project.ProjectID,
				Title:       title,
				Filename:    title + noteExt,
				Content:     in.Content,
				Status:      models.NoteDraft,
				Tags:        []string{},
				Order:       m.NotesCount(project.ProjectID),
				CreatedAt:   modified,
				LastUpdated: modified,
			}))
			report.Notes++
		}
	}

	if len(changedProjects) > 0 {
		if err := m.projects.Save(ctx, changedProjects, nil); err != nil {
			return report, err
		}
	}
	if len(changedNotes) > 0 {
		if err := m.notes.Save(ctx, changedNotes, nil); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (m *Manager) projectByName(name string) *models.NoteProject {
	for _, p := range m.projects.Sorted() {
		if p.Name == name {
			return p
		}
	}
	return nil
}
