package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lifeos/internal/storage/memory"
	"lifeos/internal/workspace"
)

type harness struct {
	t      *testing.T
	srv    *Server
	store  *memory.Store
	spaces *workspace.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	spaces := workspace.NewRegistry(store, workspace.Options{Logger: logger, AutosaveDelay: time.Hour})
	srv := New(spaces, logger, Options{DefaultOwner: "local"})
	return &harness{t: t, srv: srv, store: store, spaces: spaces}
}

func (h *harness) do(method, path, owner string, body any) (int, map[string]any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func field(doc map[string]any, key string) map[string]any {
	v, _ := doc[key].(map[string]any)
	return v
}

func list(doc map[string]any, key string) []any {
	v, _ := doc[key].([]any)
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(http.MethodGet, "/api/healthz", "", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz = %d %v", code, body)
	}
}

func TestProjectsLifecycle(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(http.MethodGet, "/api/projects", "alice", nil)
	if code != http.StatusOK || len(list(body, "projects")) != 2 {
		t.Fatalf("seeded projects = %d %v", code, body)
	}

	code, body = h.do(http.MethodPost, "/api/projects", "alice", map[string]any{"name": "Work"})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %v", code, body)
	}
	work := field(body, "project")
	id, _ := work["project_id"].(string)
	if id == "" || work["order"] != float64(2) {
		t.Fatalf("project = %v", work)
	}

	code, body = h.do(http.MethodPost, "/api/tasks", "alice", map[string]any{"title": "Ship", "project_id": id})
	if code != http.StatusCreated {
		t.Fatalf("create task = %d %v", code, body)
	}
	taskID := field(body, "task")["task_id"].(string)

	code, body = h.do(http.MethodGet, "/api/projects", "alice", nil)
	if code != http.StatusOK {
		t.Fatal(code)
	}
	var counted bool
	for _, raw := range list(body, "projects") {
		p := raw.(map[string]any)
		if p["project_id"] == id {
			counted = p["task_count"] == float64(1)
		}
	}
	if !counted {
		t.Errorf("task_count missing for %s: %v", id, body)
	}

	if code, _ := h.do(http.MethodDelete, "/api/projects/"+id, "alice", nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	_, body = h.do(http.MethodGet, "/api/tasks?project_id=general", "alice", nil)
	tasks := list(body, "tasks")
	if len(tasks) != 1 || tasks[0].(map[string]any)["task_id"] != taskID {
		t.Errorf("task not reassigned to general: %v", body)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/writing/projects", "alice", map[string]any{"name": "Drafts"})

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing name", http.MethodPost, "/api/projects", map[string]any{}, http.StatusBadRequest},
		{"unknown project", http.MethodPut, "/api/projects/nope", map[string]any{"name": "x"}, http.StatusNotFound},
		{"reserved delete", http.MethodDelete, "/api/projects/general", nil, http.StatusForbidden},
		{"reserved archive", http.MethodPut, "/api/projects/archive/archive", nil, http.StatusForbidden},
		{"duplicate note project", http.MethodPost, "/api/writing/projects", map[string]any{"name": "drafts"}, http.StatusConflict},
		{"system note project", http.MethodDelete, "/api/writing/projects/system", nil, http.StatusForbidden},
		{"unknown task", http.MethodPut, "/api/tasks/nope/complete", nil, http.StatusNotFound},
		{"bad archived flag", http.MethodGet, "/api/tasks?archived=maybe", nil, http.StatusBadRequest},
		{"empty quick note", http.MethodPost, "/api/notes/quick", map[string]any{"content": "  "}, http.StatusBadRequest},
		{"content lookup without keys", http.MethodGet, "/api/notes/content", nil, http.StatusBadRequest},
		{"unknown settings", http.MethodPut, "/api/settings", map[string]any{"nope": 1}, http.StatusBadRequest},
		{"unknown api path", http.MethodGet, "/api/nope", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := h.do(tc.method, tc.path, "alice", tc.body)
			if code != tc.want {
				t.Errorf("status = %d, want %d (%v)", code, tc.want, body)
			}
			if body["error"] == nil {
				t.Errorf("no error message in %v", body)
			}
		})
	}
}

func TestInvalidOwner(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(http.MethodGet, "/api/tasks", "../etc", nil)
	if code != http.StatusBadRequest {
		t.Errorf("status = %d", code)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/tasks", "alice", map[string]any{"title": "mine"})

	_, body := h.do(http.MethodGet, "/api/tasks", "bob", nil)
	if n := len(list(body, "tasks")); n != 0 {
		t.Errorf("bob sees %d tasks", n)
	}
	// Requests without the header fall back to the default owner.
	_, body = h.do(http.MethodGet, "/api/tasks", "", nil)
	if n := len(list(body, "tasks")); n != 0 {
		t.Errorf("default owner sees %d tasks", n)
	}
}

func TestTaskArchiveHiddenByDefault(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodPost, "/api/tasks", "alice", map[string]any{"title": "old", "priority": "high"})
	id := field(body, "task")["task_id"].(string)
	h.do(http.MethodPost, "/api/tasks", "alice", map[string]any{"title": "new"})

	code, body := h.do(http.MethodPut, "/api/tasks/"+id+"/archive", "alice", nil)
	if code != http.StatusOK || field(body, "task")["project_id"] != "archive" {
		t.Fatalf("archive = %d %v", code, body)
	}

	_, body = h.do(http.MethodGet, "/api/tasks", "alice", nil)
	if n := len(list(body, "tasks")); n != 1 {
		t.Errorf("visible tasks = %d", n)
	}
	_, body = h.do(http.MethodGet, "/api/archive/all", "alice", nil)
	if n := len(list(body, "tasks")); n != 1 {
		t.Errorf("archived tasks = %d (%v)", n, body)
	}
}

func TestNotesFlow(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodPost, "/api/writing/projects", "alice", map[string]any{"name": "Essays"})
	projectID := field(body, "project")["project_id"].(string)

	code, body := h.do(http.MethodPost, "/api/notes", "alice", map[string]any{"project_id": projectID, "title": "Intro", "content": "hello"})
	if code != http.StatusCreated {
		t.Fatalf("create note = %d %v", code, body)
	}
	note := field(body, "note")
	if note["filename"] != "Intro.txt" {
		t.Errorf("filename = %v", note["filename"])
	}
	noteID := note["note_id"].(string)

	_, body = h.do(http.MethodGet, "/api/notes/content?project_id="+projectID+"&filename=Intro.txt", "alice", nil)
	if field(body, "note")["content"] != "hello" {
		t.Errorf("content lookup = %v", body)
	}

	_, body = h.do(http.MethodGet, "/api/writing/projects", "alice", nil)
	for _, raw := range list(body, "projects") {
		p := raw.(map[string]any)
		if p["project_id"] == projectID && p["notes_count"] != float64(1) {
			t.Errorf("notes_count = %v", p["notes_count"])
		}
	}

	code, body = h.do(http.MethodPut, "/api/notes/"+noteID+"/move", "alice", map[string]any{"project_id": "system"})
	if code != http.StatusOK || field(body, "note")["project_id"] != "system" {
		t.Fatalf("move = %d %v", code, body)
	}

	_, body = h.do(http.MethodGet, "/api/notes/structure", "alice", nil)
	structure := list(body, "structure")
	if len(structure) != 2 {
		t.Fatalf("structure = %v", body)
	}
	system := structure[0].(map[string]any)
	if system["project_id"] != "system" || len(list(system, "notes")) != 1 {
		t.Errorf("system entry = %v", system)
	}
}

func TestQuickNoteAppends(t *testing.T) {
	h := newHarness(t)
	for _, text := range []string{"first", "second"} {
		if code, body := h.do(http.MethodPost, "/api/notes/quick", "alice", map[string]any{"content": text}); code != http.StatusOK {
			t.Fatalf("quick = %d %v", code, body)
		}
	}
	_, body := h.do(http.MethodGet, "/api/notes/content?project_id=system&filename=QuickNote.txt", "alice", nil)
	content, _ := field(body, "note")["content"].(string)
	if !bytes.Contains([]byte(content), []byte("first")) || !bytes.Contains([]byte(content), []byte("second")) {
		t.Errorf("content = %q", content)
	}
}

func TestNoteDraftIsBuffered(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodPost, "/api/notes", "alice", map[string]any{"project_id": "system", "title": "Draft"})
	id := field(body, "note")["note_id"].(string)

	code, _ := h.do(http.MethodPut, "/api/notes/"+id+"/draft", "alice", map[string]any{"content": "typing"})
	if code != http.StatusAccepted {
		t.Fatalf("draft = %d", code)
	}
	_, body = h.do(http.MethodGet, "/api/notes/"+id, "alice", nil)
	if body["draft_pending"] != true || field(body, "note")["content"] != "" {
		t.Errorf("before close = %v", body)
	}

	if err := h.spaces.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, body = h.do(http.MethodGet, "/api/notes/"+id, "alice", nil)
	if field(body, "note")["content"] != "typing" {
		t.Errorf("after close = %v", body)
	}

	if code, _ := h.do(http.MethodPut, "/api/notes/missing/draft", "alice", map[string]any{"content": "x"}); code != http.StatusNotFound {
		t.Errorf("draft for unknown note = %d", code)
	}
}

func TestSettings(t *testing.T) {
	h := newHarness(t)
	_, body := h.do(http.MethodGet, "/api/settings", "alice", nil)
	if field(body, "settings")["theme"] != "dark" {
		t.Fatalf("defaults = %v", body)
	}
	code, body := h.do(http.MethodPut, "/api/settings", "alice", map[string]any{"theme": "light"})
	if code != http.StatusOK || field(body, "settings")["theme"] != "light" {
		t.Fatalf("update = %d %v", code, body)
	}
}

func TestPersistenceFailureIs500(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/api/tasks", "alice", nil)
	h.store.FailWith(errors.New("disk full"))
	code, _ := h.do(http.MethodPost, "/api/tasks", "alice", map[string]any{"title": "x"})
	if code != http.StatusInternalServerError {
		t.Errorf("status = %d", code)
	}
}
