package tasks

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/storage"
)

// Cascade receives the secondary mutations triggered by project changes.
// The Tasks manager implements it.
type Cascade interface {
	ReassignProject(ctx context.Context, from, to string) (int, error)
	ArchiveProjectTasks(ctx context.Context, projectID string, archived bool) (int, error)
}

// ProjectInput holds the fields accepted when creating a project.
type ProjectInput struct {
	Name        string
	Color       string
	Icon        string
	Description string
}

// ProjectPatch lists the updatable project fields. Nil fields are left
// unchanged.
type ProjectPatch struct {
	Name        *string
	Color       *string
	Icon        *string
	Description *string
	Order       *int
}

// Projects manages one owner's task projects.
type Projects struct {
	opts    Options
	records *storage.Records[models.Project]
	cascade Cascade
}

// LoadProjects reads the owner's projects through the normalizer and seeds
// the reserved projects that are missing.
func LoadProjects(ctx context.Context, store storage.Store, owner string, opts Options) (*Projects, error) {
	opts = opts.withDefaults()
	m := &Projects{
		opts: opts,
		records: storage.NewRecords(store,
			storage.Scope{Owner: owner, Collection: storage.Projects},
			opts.Logger,
			func(p *models.Project) string { return p.ProjectID },
			func(p *models.Project) int { return p.Order },
			func(p *models.Project) storage.Document { return p.Document() }),
	}

	docs, err := m.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	projects, report := opts.normalizer().Projects(docs)
	report.Log(ctx, opts.Logger)
	for _, p := range projects {
		m.records.Add(p)
	}
	m.records.Retire(report.Rekeyed)

	if err := m.seed(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// seed adds general and archive when they are absent. An empty collection
// gets them at orders 0 and 1.
func (m *Projects) seed(ctx context.Context) error {
	var added []*models.Project
	reserved := []struct {
		id, name, color, icon string
	}{
		{models.GeneralProjectID, "General", models.DefaultProjectColor, "📋"},
		{models.ArchiveProjectID, "Archive", "#6b7280", "📦"},
	}
	for _, r := range reserved {
		if _, ok := m.records.Get(r.id); ok {
			continue
		}
		added = append(added, m.records.Add(models.Project{
			ProjectID: r.id,
			Name:      r.name,
			Color:     r.color,
			Icon:      r.icon,
			Order:     m.records.Len(),
			CreatedAt: m.opts.timestamp(),
		}))
	}
	if len(added) == 0 {
		return nil
	}
	m.opts.Logger.Info("seeded reserved projects",
		slog.Int("count", len(added)))
	return m.records.Save(ctx, added, nil)
}

// SetCascade installs the receiver of delete and archive cascades.
func (m *Projects) SetCascade(c Cascade) { m.cascade = c }

// List returns every project by order, ties by insertion.
func (m *Projects) List() []models.Project {
	return m.records.Values()
}

// ListArchived returns the projects whose archived flag equals archived.
func (m *Projects) ListArchived(archived bool) []models.Project {
	var out []models.Project
	for _, p := range m.records.Values() {
		if p.Archived == archived {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the project with id.
func (m *Projects) Get(id string) (models.Project, error) {
	p, ok := m.records.Get(id)
	if !ok {
		return models.Project{}, apperr.NotFound("project", id)
	}
	return *p, nil
}

// Create adds a project at the end of the display order.
func (m *Projects) Create(ctx context.Context, in ProjectInput) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, apperr.Validation("project", "name", "is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = randomColor()
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = models.DefaultProjectIcon
	}

	p := m.records.Add(models.Project{
		ProjectID:   m.opts.NewID(),
		Name:        name,
		Color:       color,
		Icon:        icon,
		Description: in.Description,
		Order:       m.records.Len(),
		CreatedAt:   m.opts.timestamp(),
	})
	return *p, m.records.Save(ctx, []*models.Project{p}, nil)
}

// Update merges patch into the project. Reserved projects keep their names.
func (m *Projects) Update(ctx context.Context, id string, patch ProjectPatch) (models.Project, error) {
	p, ok := m.records.Get(id)
	if !ok {
		return models.Project{}, apperr.NotFound("project", id)
	}

	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Project{}, apperr.Validation("project", "name", "must not be empty")
		}
		if models.IsReservedProject(id) && name != p.Name {
			return models.Project{}, apperr.Reserved("project", id, "cannot be renamed")
		}
	}

	if patch.Name != nil {
		p.Name = name
	}
	if patch.Color != nil && *patch.Color != "" {
		p.Color = *patch.Color
	}
	if patch.Icon != nil && *patch.Icon != "" {
		p.Icon = *patch.Icon
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Order != nil {
		p.Order = *patch.Order
	}
	return *p, m.records.Save(ctx, []*models.Project{p}, nil)
}

// Delete removes a project and moves its tasks to general.
func (m *Projects) Delete(ctx context.Context, id string) error {
	if models.IsReservedProject(id) {
		return apperr.Reserved("project", id, "cannot be deleted")
	}
	if !m.records.Remove(id) {
		return apperr.NotFound("project", id)
	}
	if err := m.records.Save(ctx, nil, []string{id}); err != nil {
		return err
	}
	if m.cascade == nil {
		return nil
	}
	n, err := m.cascade.ReassignProject(ctx, id, models.GeneralProjectID)
	m.opts.Logger.Debug("project deleted",
		slog.String("id", id),
		slog.Int("reassigned", n))
	return err
}

// Reorder assigns order = index to every known id and persists once.
// Unknown ids are ignored.
func (m *Projects) Reorder(ctx context.Context, ids []string) error {
	var changed []*models.Project
	for i, id := range ids {
		p, ok := m.records.Get(id)
		if !ok {
			continue
		}
		if p.Order != i {
			p.Order = i
			changed = append(changed, p)
		}
	}
	return m.records.Save(ctx, changed, nil)
}

// Archive sets the archived flag of a project and of all its tasks.
func (m *Projects) Archive(ctx context.Context, id string, archived bool) (models.Project, error) {
	if models.IsReservedProject(id) {
		return models.Project{}, apperr.Reserved("project", id, "cannot be archived")
	}
	p, ok := m.records.Get(id)
	if !ok {
		return models.Project{}, apperr.NotFound("project", id)
	}
	if p.Archived != archived {
		p.Archived = archived
		if err := m.records.Save(ctx, []*models.Project{p}, nil); err != nil {
			return *p, err
		}
	}
	if m.cascade != nil {
		if _, err := m.cascade.ArchiveProjectTasks(ctx, id, archived); err != nil {
			return *p, err
		}
	}
	return *p, nil
}

// Flush rewrites the whole collection in canonical form.
func (m *Projects) Flush(ctx context.Context) error {
	return m.records.SaveAll(ctx)
}

func randomColor() string {
	return models.ProjectColors[rand.IntN(len(models.ProjectColors))]
}
