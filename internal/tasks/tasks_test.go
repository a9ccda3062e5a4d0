package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/storage"
	"lifeos/internal/storage/memory"
)

var (
	projectScope = storage.Scope{Owner: "alice", Collection: storage.Projects}
	taskScope    = storage.Scope{Owner: "alice", Collection: storage.Tasks}
)

func testOptions() Options {
	n := 0
	return Options{
		Now: func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func newManagers(t *testing.T, store *memory.Store) (*Projects, *Tasks) {
	t.Helper()
	ctx := context.Background()
	opts := testOptions()
	projects, err := LoadProjects(ctx, store, "alice", opts)
	if err != nil {
		t.Fatalf("LoadProjects: %v", err)
	}
	tasks, err := LoadTasks(ctx, store, "alice", opts)
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	projects.SetCascade(tasks)
	return projects, tasks
}

func TestLoadProjects_SeedsReserved(t *testing.T) {
	store := memory.New()
	projects, _ := newManagers(t, store)

	got := projects.List()
	if len(got) != 2 || got[0].ProjectID != "general" || got[0].Order != 0 ||
		got[1].ProjectID != "archive" || got[1].Order != 1 {
		t.Fatalf("List() = %+v", got)
	}
	if got[0].Color != "#6366f1" || got[0].Icon != "📋" {
		t.Errorf("general = %q %q", got[0].Color, got[0].Icon)
	}
	if got[1].Color != "#6b7280" || got[1].Icon != "📦" {
		t.Errorf("archive = %q %q", got[1].Color, got[1].Icon)
	}
	if store.Persists(projectScope) != 1 {
		t.Errorf("seeding persisted %d times", store.Persists(projectScope))
	}

	// A second load finds them and writes nothing.
	if _, err := LoadProjects(context.Background(), store, "alice", testOptions()); err != nil {
		t.Fatal(err)
	}
	if store.Persists(projectScope) != 1 {
		t.Errorf("reload persisted again")
	}
}

func TestLoadProjects_AddsMissingReserved(t *testing.T) {
	store := memory.New()
	store.Seed(projectScope, storage.Document{"project_id": "work", "name": "Work", "order": 0})
	projects, _ := newManagers(t, store)

	if _, err := projects.Get("general"); err != nil {
		t.Errorf("general missing: %v", err)
	}
	if _, err := projects.Get("archive"); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	if _, err := projects.Get("work"); err != nil {
		t.Errorf("work missing: %v", err)
	}
}

func TestScenario_ProjectTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	projects, tasks := newManagers(t, memory.New())

	work, err := projects.Create(ctx, ProjectInput{Name: "Work"})
	if err != nil {
		t.Fatalf("Create project: %v", err)
	}
	if work.ProjectID == "" || work.Order != 2 {
		t.Errorf("project = %+v", work)
	}

	task, err := tasks.Create(ctx, TaskInput{Title: "Write report", ProjectID: work.ProjectID})
	if err != nil {
		t.Fatalf("Create task: %v", err)
	}
	if task.Status != models.StatusPending || task.Priority != models.PriorityMedium {
		t.Errorf("task = %+v", task)
	}

	done, err := tasks.Complete(ctx, task.TaskID)
	if err != nil || done.Status != models.StatusCompleted {
		t.Fatalf("Complete = %+v, %v", done, err)
	}

	if err := projects.Delete(ctx, work.ProjectID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := tasks.Get(task.TaskID)
	if got.ProjectID != models.GeneralProjectID {
		t.Errorf("task project = %q, want general", got.ProjectID)
	}
}

func TestProjects_ReservedRules(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	projects, _ := newManagers(t, store)
	before := store.Persists(projectScope)

	for _, id := range []string{"general", "archive"} {
		if err := projects.Delete(ctx, id); !errors.Is(err, apperr.ErrReserved) {
			t.Errorf("Delete(%s) err = %v", id, err)
		}
		name := "Renamed"
		if _, err := projects.Update(ctx, id, ProjectPatch{Name: &name}); !errors.Is(err, apperr.ErrReserved) {
			t.Errorf("rename %s err = %v", id, err)
		}
		if _, err := projects.Archive(ctx, id, true); !errors.Is(err, apperr.ErrReserved) {
			t.Errorf("Archive(%s) err = %v", id, err)
		}
	}
	if len(projects.List()) != 2 || store.Persists(projectScope) != before {
		t.Errorf("reserved operations changed state")
	}

	color := "#000000"
	if _, err := projects.Update(ctx, "general", ProjectPatch{Color: &color}); err != nil {
		t.Errorf("recolor general: %v", err)
	}
}

func TestProjects_Validation(t *testing.T) {
	ctx := context.Background()
	projects, _ := newManagers(t, memory.New())

	if _, err := projects.Create(ctx, ProjectInput{Name: "  "}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty name err = %v", err)
	}
	if _, err := projects.Update(ctx, "nope", ProjectPatch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown update err = %v", err)
	}
	if err := projects.Delete(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown delete err = %v", err)
	}
}

func TestProjects_Reorder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	projects, _ := newManagers(t, store)
	a, _ := projects.Create(ctx, ProjectInput{Name: "A"})
	b, _ := projects.Create(ctx, ProjectInput{Name: "B"})
	before := store.Persists(projectScope)

	if err := projects.Reorder(ctx, []string{b.ProjectID, "ghost", a.ProjectID, "general", "archive"}); err != nil {
		t.Fatal(err)
	}
	if store.Persists(projectScope) != before+1 {
		t.Errorf("Reorder persisted %d times", store.Persists(projectScope)-before)
	}

	var names []string
	for _, p := range projects.List() {
		names = append(names, p.Name)
	}
	want := []string{"B", "A", "General", "Archive"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestProjects_EqualOrderKeepsInsertion(t *testing.T) {
	store := memory.New()
	store.Seed(projectScope,
		storage.Document{"project_id": "general", "name": "General", "order": 0},
		storage.Document{"project_id": "archive", "name": "Archive", "order": 0},
		storage.Document{"project_id": "x", "name": "X", "order": 0},
	)
	projects, _ := newManagers(t, store)
	got := projects.List()
	if got[0].ProjectID != "general" || got[1].ProjectID != "archive" || got[2].ProjectID != "x" {
		t.Errorf("List() = %+v", got)
	}
}

func TestProjects_ArchiveCascadeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	projects, tasks := newManagers(t, store)
	p, _ := projects.Create(ctx, ProjectInput{Name: "P"})
	for i := 0; i < 3; i++ {
		_, _ = tasks.Create(ctx, TaskInput{Title: fmt.Sprint("t", i), ProjectID: p.ProjectID})
	}

	if _, err := projects.Archive(ctx, p.ProjectID, true); err != nil {
		t.Fatal(err)
	}
	for _, task := range tasks.List() {
		if !task.Archived {
			t.Errorf("task %s not archived", task.TaskID)
		}
	}

	taskPersists := store.Persists(taskScope)
	projectPersists := store.Persists(projectScope)
	if _, err := projects.Archive(ctx, p.ProjectID, true); err != nil {
		t.Fatal(err)
	}
	if store.Persists(taskScope) != taskPersists || store.Persists(projectScope) != projectPersists {
		t.Errorf("second archive persisted")
	}

	if _, err := projects.Archive(ctx, p.ProjectID, false); err != nil {
		t.Fatal(err)
	}
	for _, task := range tasks.List() {
		if task.Archived {
			t.Errorf("task %s still archived", task.TaskID)
		}
	}
}

func TestTasks_UnknownIDPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, tasks := newManagers(t, store)
	title := "x"

	checks := map[string]error{}
	_, checks["update"] = tasks.Update(ctx, "ghost", TaskPatch{Title: &title})
	_, checks["complete"] = tasks.Complete(ctx, "ghost")
	_, checks["archive"] = tasks.Archive(ctx, "ghost")
	checks["delete"] = tasks.Delete(ctx, "ghost")

	for op, err := range checks {
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s err = %v", op, err)
		}
	}
	if store.Persists(taskScope) != 0 {
		t.Errorf("persisted %d times", store.Persists(taskScope))
	}
}

func TestTasks_CreateRequiresTitle(t *testing.T) {
	store := memory.New()
	_, tasks := newManagers(t, store)
	if _, err := tasks.Create(context.Background(), TaskInput{Title: " "}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v", err)
	}
	if len(tasks.List()) != 0 || store.Persists(taskScope) != 0 {
		t.Errorf("validation failure changed state")
	}
}

func TestTasks_CompleteAndArchiveIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, tasks := newManagers(t, store)
	task, _ := tasks.Create(ctx, TaskInput{Title: "t"})

	first, _ := tasks.Complete(ctx, task.TaskID)
	n := store.Persists(taskScope)
	second, err := tasks.Complete(ctx, task.TaskID)
	if err != nil || second.Status != first.Status || store.Persists(taskScope) != n {
		t.Errorf("second Complete = %+v, %v", second, err)
	}

	archived, _ := tasks.Archive(ctx, task.TaskID)
	if archived.Status != models.StatusArchived || archived.ProjectID != models.ArchiveProjectID || !archived.Archived {
		t.Errorf("Archive = %+v", archived)
	}
	n = store.Persists(taskScope)
	if _, err := tasks.Archive(ctx, task.TaskID); err != nil || store.Persists(taskScope) != n {
		t.Errorf("second Archive persisted or failed: %v", err)
	}
}

func TestTasks_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	_, tasks := newManagers(t, memory.New())
	task, _ := tasks.Create(ctx, TaskInput{Title: "t", Tags: []string{"a"}, Priority: "high"})

	end := models.Date("2024-06-01T12:00:00Z")
	status := "bogus"
	tags := []string{" b ", "b", "c"}
	got, err := tasks.Update(ctx, task.TaskID, TaskPatch{EndDate: &end, Status: &status, Tags: &tags})
	if err != nil {
		t.Fatal(err)
	}
	if got.EndDate != "2024-06-01" || got.Status != models.StatusPending ||
		got.Priority != models.PriorityHigh || fmt.Sprint(got.Tags) != "[b c]" || got.Title != "t" {
		t.Errorf("Update = %+v", got)
	}
}

func TestTasks_PersistenceFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, tasks := newManagers(t, store)
	store.FailWith(errors.New("disk full"))

	task, err := tasks.Create(ctx, TaskInput{Title: "t"})
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("err = %v", err)
	}
	if _, err := tasks.Get(task.TaskID); err != nil {
		t.Errorf("in-memory task lost: %v", err)
	}
}

func storedTasks(t *testing.T, store *memory.Store) []storage.Document {
	t.Helper()
	docs, err := store.Load(context.Background(), taskScope)
	if err != nil {
		t.Fatal(err)
	}
	return docs
}

func TestTasks_LegacyKeyedUpdateSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Seed(taskScope, storage.Document{"id": 7, "title": "legacy", "category": "Work"})

	_, tasks := newManagers(t, store)
	title := "updated"
	if _, err := tasks.Update(ctx, "7", TaskPatch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	if docs := storedTasks(t, store); len(docs) != 1 || docs[0]["task_id"] != "7" {
		t.Fatalf("stored = %+v", docs)
	}

	_, reloaded := newManagers(t, store)
	got, err := reloaded.Get("7")
	if err != nil || got.Title != "updated" {
		t.Errorf("after reload = %+v, %v", got, err)
	}
}

func TestTasks_LegacyKeysRetiredOnFlushAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Seed(taskScope,
		storage.Document{"task_id": 1, "title": "numeric"},
		storage.Document{"id": "b", "title": "alias only"},
		storage.Document{"id": "c", "title": "to delete"},
	)

	_, tasks := newManagers(t, store)
	if err := tasks.Delete(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if n := len(storedTasks(t, store)); n != 2 {
		t.Fatalf("after delete %d documents stored", n)
	}

	if err := tasks.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	docs := storedTasks(t, store)
	if len(docs) != 2 {
		t.Fatalf("after flush = %+v", docs)
	}
	for _, d := range docs {
		if _, ok := d["task_id"].(string); !ok {
			t.Errorf("document not canonical: %+v", d)
		}
	}

	// Nothing is left to retire, so a second flush only rewrites.
	if err := tasks.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if retire := store.LastChange(taskScope).Retire; len(retire) != 0 {
		t.Errorf("second flush retired %+v", retire)
	}
}

func TestTasks_QueryFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	_, tasks := newManagers(t, memory.New())
	mk := func(in TaskInput) models.Task {
		task, err := tasks.Create(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		return task
	}
	a := mk(TaskInput{Title: "Alpha", Priority: "low", EndDate: "2024-03-01", ProjectID: "p"})
	b := mk(TaskInput{Title: "Beta", Priority: "critical", Status: "in_progress", Tags: []string{"Urgent"}})
	c := mk(TaskInput{Title: "Gamma", Priority: "high", StartDate: "2024-01-15", Description: "alpha notes"})
	d := mk(TaskInput{Title: "Delta", Status: "completed", ProjectID: "p"})

	ids := func(ts []models.Task) string {
		var out []string
		for _, task := range ts {
			out = append(out, task.TaskID)
		}
		return fmt.Sprint(out)
	}

	tests := []struct {
		name   string
		filter Filter
		sort   Sort
		want   []string
	}{
		{"order", Filter{}, SortOrder, []string{a.TaskID, b.TaskID, c.TaskID, d.TaskID}},
		{"priority", Filter{}, SortPriority, []string{b.TaskID, c.TaskID, d.TaskID, a.TaskID}},
		{"date", Filter{}, SortDate, []string{c.TaskID, a.TaskID, b.TaskID, d.TaskID}},
		{"status", Filter{}, SortStatus, []string{b.TaskID, a.TaskID, c.TaskID, d.TaskID}},
		{"project", Filter{ProjectID: "p"}, SortOrder, []string{a.TaskID, d.TaskID}},
		{"search title or description", Filter{Search: "ALPHA"}, SortOrder, []string{a.TaskID, c.TaskID}},
		{"search tags", Filter{Search: "urg"}, SortOrder, []string{b.TaskID}},
		{"and", Filter{ProjectID: "p", Status: "completed"}, SortOrder, []string{d.TaskID}},
		{"priority filter", Filter{Priority: "high"}, SortOrder, []string{c.TaskID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tasks.Query(tt.filter, tt.sort))
			if got != fmt.Sprint(tt.want) {
				t.Errorf("Query() = %s, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	cases := map[string]Sort{"": SortOrder, "Priority": SortPriority, "due_date": SortDate, "status": SortStatus, "nope": SortOrder}
	for in, want := range cases {
		if got := ParseSort(in); got != want {
			t.Errorf("ParseSort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	projects := []models.Project{{ProjectID: "a"}, {ProjectID: "b"}}
	tasks := []models.Task{
		{ProjectID: "a", Status: models.StatusCompleted},
		{ProjectID: "a", Status: models.StatusPending},
		{ProjectID: "a", Status: models.StatusPending},
	}
	got := Summarize(projects, tasks)
	if got[0].TaskCount != 3 || got[0].DoneCount != 1 || got[0].Progress != 33 {
		t.Errorf("a = %+v", got[0])
	}
	if got[1].TaskCount != 0 || got[1].Progress != 0 {
		t.Errorf("b = %+v", got[1])
	}
}

func TestDeleteProject_ReassignsAllTasks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := memory.New()
		opts := testOptions()
		projects, _ := LoadProjects(ctx, store, "alice", opts)
		tasks, _ := LoadTasks(ctx, store, "alice", opts)
		projects.SetCascade(tasks)

		p, _ := projects.Create(ctx, ProjectInput{Name: "doomed"})
		owned := rapid.IntRange(0, 8).Draw(t, "owned")
		other := rapid.IntRange(0, 4).Draw(t, "other")
		for i := 0; i < owned; i++ {
			_, _ = tasks.Create(ctx, TaskInput{Title: "own", ProjectID: p.ProjectID})
		}
		for i := 0; i < other; i++ {
			_, _ = tasks.Create(ctx, TaskInput{Title: "other", ProjectID: "elsewhere"})
		}

		if err := projects.Delete(ctx, p.ProjectID); err != nil {
			t.Fatal(err)
		}
		general := tasks.Query(Filter{ProjectID: models.GeneralProjectID}, SortOrder)
		stale := tasks.Query(Filter{ProjectID: p.ProjectID}, SortOrder)
		if len(general) != owned || len(stale) != 0 {
			t.Fatalf("general=%d stale=%d owned=%d", len(general), len(stale), owned)
		}
	})
}

func TestCreateTask_EnumsAlwaysValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		_, tasks := newManagersRapid(t)
		task, err := tasks.Create(context.Background(), TaskInput{
			Title:    "t",
			Priority: rapid.String().Draw(t, "priority"),
			Status:   rapid.String().Draw(t, "status"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if !task.Priority.Valid() || !task.Status.Valid() {
			t.Fatalf("invalid enums %q %q", task.Priority, task.Status)
		}
	})
}

func newManagersRapid(t *rapid.T) (*Projects, *Tasks) {
	ctx := context.Background()
	store := memory.New()
	projects, err := LoadProjects(ctx, store, "alice", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := LoadTasks(ctx, store, "alice", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	projects.SetCascade(tasks)
	return projects, tasks
}
