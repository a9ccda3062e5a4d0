package workspace

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"lifeos/internal/models"
	"lifeos/internal/notes"
	"lifeos/internal/storage/memory"
	"lifeos/internal/tasks"
)

func TestRegistry_IsolatesOwners(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.New(), Options{})

	alice, err := reg.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	again, _ := reg.Get(ctx, "alice")
	if alice != again {
		t.Error("Get returned a second workspace for the same owner")
	}

	if _, err := alice.Tasks.Create(ctx, tasks.TaskInput{Title: "private"}); err != nil {
		t.Fatal(err)
	}
	bob, err := reg.Get(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(bob.Tasks.List()) != 0 {
		t.Errorf("bob sees alice's tasks")
	}

	// Owners that cannot be stored are rejected.
	if _, err := reg.Get(ctx, "../evil"); err == nil {
		t.Error("invalid owner accepted")
	}
}

func TestArchiveView(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, memory.New(), "alice", Options{})
	if err != nil {
		t.Fatal(err)
	}
	task, _ := w.Tasks.Create(ctx, tasks.TaskInput{Title: "old"})
	_, _ = w.Tasks.Create(ctx, tasks.TaskInput{Title: "live"})
	_, _ = w.Tasks.Archive(ctx, task.TaskID)

	p, _ := w.Notes.CreateProject(ctx, notes.ProjectInput{Name: "Shelf"})
	_, _ = w.Notes.CreateNote(ctx, notes.NoteInput{ProjectID: p.ProjectID, Title: "n"})
	_, _ = w.Notes.ArchiveProject(ctx, p.ProjectID, true)

	view := w.Archive()
	if len(view.Tasks) != 1 || view.Tasks[0].TaskID != task.TaskID {
		t.Errorf("tasks = %+v", view.Tasks)
	}
	if len(view.Notes) != 1 || len(view.NoteProjects) != 1 {
		t.Errorf("notes = %+v projects = %+v", view.Notes, view.NoteProjects)
	}
	if len(view.Projects) != 2 || view.Projects[0].ProjectID != models.GeneralProjectID {
		t.Errorf("projects = %+v", view.Projects)
	}
}

func TestDrafts_SaveThroughWorkspace(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.New(), Options{AutosaveDelay: time.Hour})
	w, err := reg.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	n, _ := w.Notes.CreateNote(ctx, notes.NoteInput{ProjectID: models.SystemProjectID, Title: "draft"})

	w.Drafts.Edit(n.NoteID, "typed text")
	if !w.Drafts.Pending(n.NoteID) {
		t.Fatal("draft not pending")
	}
	if err := reg.Close(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := w.Notes.Note(n.NoteID)
	if got.Content != "typed text" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestDrafts_ExplicitUpdateWins(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, memory.New(), "alice", Options{AutosaveDelay: 30 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	n, _ := w.Notes.CreateNote(ctx, notes.NoteInput{ProjectID: models.SystemProjectID, Title: "race"})

	w.Drafts.Edit(n.NoteID, "typing...")
	saved := "saved explicitly"
	w.Lock()
	_, err = w.UpdateNote(ctx, n.NoteID, notes.NotePatch{Content: &saved})
	w.Unlock()
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	w.Lock()
	got, _ := w.Notes.Note(n.NoteID)
	w.Unlock()
	if got.Content != saved {
		t.Errorf("content after quiet period = %q", got.Content)
	}
	if w.Drafts.Dirty() {
		t.Error("draft still dirty")
	}
}

func TestDrafts_TitleUpdateKeepsDraft(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, memory.New(), "alice", Options{AutosaveDelay: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	n, _ := w.Notes.CreateNote(ctx, notes.NoteInput{ProjectID: models.SystemProjectID, Title: "old"})

	w.Drafts.Edit(n.NoteID, "typed")
	title := "new"
	if _, err := w.UpdateNote(ctx, n.NoteID, notes.NotePatch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	if !w.Drafts.Pending(n.NoteID) {
		t.Fatal("title change dropped the draft")
	}
	if err := w.Drafts.Close(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := w.Notes.Note(n.NoteID)
	if got.Title != "new" || got.Content != "typed" {
		t.Errorf("note = %q %q", got.Title, got.Content)
	}
}

func TestDrafts_DeleteDropsDraft(t *testing.T) {
	ctx := context.Background()
	w, err := Open(ctx, memory.New(), "alice", Options{AutosaveDelay: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	n, _ := w.Notes.CreateNote(ctx, notes.NoteInput{ProjectID: models.SystemProjectID, Title: "gone"})

	w.Drafts.Edit(n.NoteID, "unsaved")
	if err := w.DeleteNote(ctx, n.NoteID); err != nil {
		t.Fatal(err)
	}
	if w.Drafts.Dirty() {
		t.Error("deleted note left a dirty draft")
	}
	if err := w.Drafts.Close(ctx); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestOpen_LogsOwnerOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	if _, err := Open(context.Background(), memory.New(), "alice", Options{Logger: logger}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("nothing logged on first open")
	}
	for _, line := range lines {
		if n := strings.Count(line, `"owner":`); n != 1 {
			t.Errorf("owner appears %d times in %s", n, line)
		}
	}
}
