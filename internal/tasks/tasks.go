package tasks

import (
	"context"
	"strings"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/normalize"
	"lifeos/internal/storage"
)

// TaskInput holds the fields accepted when creating a task. Priority and
// Status outside their enumerations fall back to the defaults.
type TaskInput struct {
	Title        string
	Description  string
	ProjectID    string
	StartDate    models.Date
	EndDate      models.Date
	ExecutionDay models.Date
	Priority     string
	Status       string
	Tags         []string
	Notes        string
	Reminder     any
}

// TaskPatch lists the updatable task fields. Nil fields are left unchanged.
type TaskPatch struct {
	Title        *string
	Description  *string
	ProjectID    *string
	StartDate    *models.Date
	EndDate      *models.Date
	ExecutionDay *models.Date
	Priority     *string
	Status       *string
	Tags         *[]string
	Notes        *string
	Reminder     *any
	Order        *int
}

// Tasks manages one owner's tasks.
type Tasks struct {
	opts    Options
	records *storage.Records[models.Task]
}

// LoadTasks reads the owner's tasks through the normalizer. Legacy records
// stay in memory in canonical form and are rewritten on the next save.
func LoadTasks(ctx context.Context, store storage.Store, owner string, opts Options) (*Tasks, error) {
	opts = opts.withDefaults()
	m := &Tasks{
		opts: opts,
		records: storage.NewRecords(store,
			storage.Scope{Owner: owner, Collection: storage.Tasks},
			opts.Logger,
			func(t *models.Task) string { return t.TaskID },
			func(t *models.Task) int { return t.Order },
			func(t *models.Task) storage.Document { return t.Document() }),
	}

	docs, err := m.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	tasks, report := opts.normalizer().Tasks(docs)
	report.Log(ctx, opts.Logger)
	for _, t := range tasks {
		m.records.Add(t)
	}
	m.records.Retire(report.Rekeyed)
	return m, nil
}

// List returns every task by order, ties by insertion.
func (m *Tasks) List() []models.Task {
	return m.records.Values()
}

// Query returns the tasks matching f in the requested order.
func (m *Tasks) Query(f Filter, by Sort) []models.Task {
	out := []models.Task{}
	for _, t := range m.records.Values() {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sortTasks(out, by)
	return out
}

// Get returns the task with id.
func (m *Tasks) Get(id string) (models.Task, error) {
	t, ok := m.records.Get(id)
	if !ok {
		return models.Task{}, apperr.NotFound("task", id)
	}
	return *t, nil
}

// Create adds a task at the end of the display order.
func (m *Tasks) Create(ctx context.Context, in TaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, apperr.Validation("task", "title", "is required")
	}
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		projectID = models.GeneralProjectID
	}

	t := m.records.Add(models.Task{
		TaskID:       m.opts.NewID(),
		Title:        title,
		Description:  in.Description,
		ProjectID:    projectID,
		StartDate:    models.ParseDate(string(in.StartDate)),
		EndDate:      models.ParseDate(string(in.EndDate)),
		ExecutionDay: models.ParseDate(string(in.ExecutionDay)),
		Priority:     models.ParsePriority(in.Priority),
		Status:       models.ParseStatus(in.Status),
		Tags:         normalize.Tags(in.Tags),
		Notes:        in.Notes,
		Reminder:     in.Reminder,
		Order:        m.records.Len(),
		CreatedAt:    m.opts.timestamp(),
	})
	return *t, m.records.Save(ctx, []*models.Task{t}, nil)
}

// Update merges patch into the task.
func (m *Tasks) Update(ctx context.Context, id string, patch TaskPatch) (models.Task, error) {
	t, ok := m.records.Get(id)
	if !ok {
		return models.Task{}, apperr.NotFound("task", id)
	}

	var title string
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Task{}, apperr.Validation("task", "title", "must not be empty")
		}
	}

	if patch.Title != nil {
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.ProjectID != nil {
		t.ProjectID = strings.TrimSpace(*patch.ProjectID)
		if t.ProjectID == "" {
			t.ProjectID = models.GeneralProjectID
		}
	}
	if patch.StartDate != nil {
		t.StartDate = models.ParseDate(string(*patch.StartDate))
	}
	if patch.EndDate != nil {
		t.EndDate = models.ParseDate(string(*patch.EndDate))
	}
	if patch.ExecutionDay != nil {
		t.ExecutionDay = models.ParseDate(string(*patch.ExecutionDay))
	}
	if patch.Priority != nil {
		t.Priority = models.ParsePriority(*patch.Priority)
	}
	if patch.Status != nil {
		t.Status = models.ParseStatus(*patch.Status)
	}
	if patch.Tags != nil {
		t.Tags = normalize.Tags(*patch.Tags)
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Reminder != nil {
		t.Reminder = *patch.Reminder
	}
	if patch.Order != nil {
		t.Order = *patch.Order
	}
	return *t, m.records.Save(ctx, []*models.Task{t}, nil)
}

// Delete removes a task.
func (m *Tasks) Delete(ctx context.Context, id string) error {
	if !m.records.Remove(id) {
		return apperr.NotFound("task", id)
	}
	return m.records.Save(ctx, nil, []string{id})
}

// Complete marks a task completed. Completing a completed task persists
// nothing.
func (m *Tasks) Complete(ctx context.Context, id string) (models.Task, error) {
	t, ok := m.records.Get(id)
	if !ok {
		return models.Task{}, apperr.NotFound("task", id)
	}
	if t.Status == models.StatusCompleted {
		return *t, nil
	}
	t.Complete()
	return *t, m.records.Save(ctx, []*models.Task{t}, nil)
}

// Archive marks a task archived and moves it to the archive project.
func (m *Tasks) Archive(ctx context.Context, id string) (models.Task, error) {
	t, ok := m.records.Get(id)
	if !ok {
		return models.Task{}, apperr.NotFound("task", id)
	}
	if t.Status == models.StatusArchived && t.ProjectID == models.ArchiveProjectID && t.Archived {
		return *t, nil
	}
	t.Archive()
	return *t, m.records.Save(ctx, []*models.Task{t}, nil)
}

// Reorder assigns order = index to every known id and persists once.
func (m *Tasks) Reorder(ctx context.Context, ids []string) error {
	var changed []*models.Task
	for i, id := range ids {
		t, ok := m.records.Get(id)
		if !ok {
			continue
		}
		if t.Order != i {
			t.Order = i
			changed = append(changed, t)
		}
	}
	return m.records.Save(ctx, changed, nil)
}

// ReassignProject moves every task of from to to and returns how many moved.
func (m *Tasks) ReassignProject(ctx context.Context, from, to string) (int, error) {
	var changed []*models.Task
	for _, t := range m.records.Sorted() {
		if t.ProjectID == from {
			t.ProjectID = to
			changed = append(changed, t)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	return len(changed), m.records.Save(ctx, changed, nil)
}

// ArchiveProjectTasks sets the archived flag of every task of projectID and
// returns how many changed. A second identical call changes nothing.
func (m *Tasks) ArchiveProjectTasks(ctx context.Context, projectID string, archived bool) (int, error) {
	var changed []*models.Task
	for _, t := range m.records.Sorted() {
		if t.ProjectID == projectID && t.Archived != archived {
			t.Archived = archived
			changed = append(changed, t)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	return len(changed), m.records.Save(ctx, changed, nil)
}

// Flush rewrites the whole collection in canonical form.
func (m *Tasks) Flush(ctx context.Context) error {
	return m.records.SaveAll(ctx)
}
