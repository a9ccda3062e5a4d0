// Package normalize converts stored records of either schema generation into
// the canonical in-memory entities.
//
// Records are read as generic documents. Each kind is normalized in the same
// sequence: identifier unification, legacy field aliasing, enum coercion,
// date coercion and defaulting. A record that cannot be identified is
// rejected; every other irregularity is repaired. Batch functions skip
// rejected records, log them, and count them in a Report instead of failing
// the whole load.
package normalize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lifeos/internal/apperr"
	"lifeos/internal/models"
	"lifeos/internal/storage"
)

// Kind names the entity kind being normalized.
type Kind string

const (
	KindProject     Kind = "project"
	KindTask        Kind = "task"
	KindNoteProject Kind = "note_project"
	KindNote        Kind = "note"
)

type alias struct {
	legacy, canonical string
}

// aliases maps legacy field names to canonical ones. When both are present
// the canonical value wins.
var aliases = map[Kind][]alias{
	KindProject: {
		{"isArchived", "archived"},
		{"is_archived", "archived"},
	},
	KindTask: {
		{"due_date", "end_date"},
		{"start_time", "start_date"},
		{"isArchived", "archived"},
		{"is_archived", "archived"},
	},
	KindNoteProject: {
		{"isArchived", "archived"},
	},
	KindNote: {
		{"isArchived", "archived"},
		{"updated", "last_updated"},
	},
}

// legacyOnly lists fields of the legacy task schema that have no canonical
// counterpart. They are dropped.
var legacyOnly = []string{"end_time", "recurrence", "estimated_time", "actual_time"}

var idFields = map[Kind]string{
	KindProject:     "project_id",
	KindTask:        "task_id",
	KindNoteProject: "project_id",
	KindNote:        "note_id",
}

// Report summarizes one batch normalization.
type Report struct {
	Kind     Kind
	Loaded   int
	Skipped  int
	Migrated int

	// Rekeyed lists the stored keys of records whose identifier was not in
	// canonical form. The stored documents must be retired when the
	// canonical form is first written.
	Rekeyed []storage.LegacyKey
}

// Log writes the report at Info when records were skipped or migrated and
// at Debug otherwise.
func (r Report) Log(ctx context.Context, logger *slog.Logger) {
	level := slog.LevelDebug
	if r.Skipped > 0 || r.Migrated > 0 {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "collection loaded",
		slog.String("kind", string(r.Kind)),
		slog.Int("loaded", r.Loaded),
		slog.Int("skipped", r.Skipped),
		slog.Int("migrated", r.Migrated))
}

// Normalizer holds the clock used for defaulted timestamps and the logger
// used for skipped records.
type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Normalizer using the wall clock.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{now: time.Now, logger: logger}
}

// WithClock returns a copy of n that uses now for defaulted timestamps.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

// prepare copies raw, unifies the identifier and applies the alias table.
// It reports whether the record used any legacy shape.
func prepare(kind Kind, raw map[string]any) (map[string]any, string, bool, error) {
	rec := make(map[string]any, len(raw))
	for k, v := range raw {
		rec[k] = v
	}
	delete(rec, "_id")
	delete(rec, "user_id")

	idField := idFields[kind]
	migrated := false

	id, ok := identifier(rec[idField])
	if present(rec, idField) {
		if _, isString := rec[idField].(string); !isString {
			migrated = true
		}
	}
	if !ok {
		if id, ok = identifier(rec["id"]); !ok {
			return nil, "", false, apperr.Validation(string(kind), idField, "missing identifier")
		}
		migrated = true
	}
	delete(rec, "id")
	rec[idField] = id

	for _, a := range aliases[kind] {
		if !present(rec, a.legacy) {
			delete(rec, a.legacy)
			continue
		}
		migrated = true
		if !present(rec, a.canonical) {
			rec[a.canonical] = rec[a.legacy]
		}
		delete(rec, a.legacy)
	}
	return rec, id, migrated, nil
}

// Project normalizes one stored project record.
func (n *Normalizer) Project(raw map[string]any) (models.Project, bool, error) {
	rec, id, migrated, err := prepare(KindProject, raw)
	if err != nil {
		return models.Project{}, false, err
	}

	p := models.Project{
		ProjectID:   id,
		Name:        text(rec["name"]),
		Color:       text(rec["color"]),
		Icon:        text(rec["icon"]),
		Description: text(rec["description"]),
		Order:       integer(rec["order"]),
		Archived:    boolean(rec["archived"]),
	}
	if p.Name == "" {
		p.Name = "Untitled"
	}
	if p.Color == "" {
		p.Color = models.DefaultProjectColor
	}
	if p.Icon == "" {
		p.Icon = models.DefaultProjectIcon
	}
	p.CreatedAt = n.createdAt(rec)
	return p, migrated, nil
}

// Task normalizes one stored task record of either schema.
func (n *Normalizer) Task(raw map[string]any) (models.Task, bool, error) {
	rec, id, migrated, err := prepare(KindTask, raw)
	if err != nil {
		return models.Task{}, false, err
	}

	if _, ok := rec["category"]; ok {
		migrated = true
		if text(rec["project_id"]) == "" {
			rec["project_id"] = models.GeneralProjectID
		}
		delete(rec, "category")
	}
	for _, field := range legacyOnly {
		if _, ok := rec[field]; ok {
			migrated = true
			delete(rec, field)
		}
	}

	title := text(rec["title"])
	if strings.TrimSpace(title) == "" {
		return models.Task{}, false, apperr.Validation(string(KindTask), "title", "must not be empty")
	}

	t := models.Task{
		TaskID:       id,
		Title:        title,
		Description:  text(rec["description"]),
		ProjectID:    text(rec["project_id"]),
		StartDate:    date(rec["start_date"]),
		EndDate:      date(rec["end_date"]),
		ExecutionDay: date(rec["execution_day"]),
		Priority:     models.ParsePriority(text(rec["priority"])),
		Status:       models.ParseStatus(text(rec["status"])),
		Tags:         tagList(rec["tags"]),
		Notes:        text(rec["notes"]),
		Reminder:     rec["reminder"],
		Order:        integer(rec["order"]),
		Archived:     boolean(rec["archived"]),
	}
	if t.ProjectID == "" {
		t.ProjectID = models.GeneralProjectID
	}
	t.CreatedAt = n.createdAt(rec)
	return t, migrated, nil
}

// NoteProject normalizes one stored note-project record. The system project
// is recognized by its id alone, so exactly one project carries IsSystem.
func (n *Normalizer) NoteProject(raw map[string]any) (models.NoteProject, bool, error) {
	rec, id, migrated, err := prepare(KindNoteProject, raw)
	if err != nil {
		return models.NoteProject{}, false, err
	}

	p := models.NoteProject{
		ProjectID:   id,
		Name:        text(rec["name"]),
		Description: text(rec["description"]),
		Tags:        tagList(rec["tags"]),
		Order:       integer(rec["order"]),
		Archived:    boolean(rec["archived"]),
		IsSystem:    id == models.SystemProjectID,
	}
	if p.Name == "" {
		p.Name = id
	}
	if boolean(rec["is_system"]) != p.IsSystem {
		migrated = true
	}
	p.CreatedAt = n.createdAt(rec)
	return p, migrated, nil
}

// Note normalizes one stored note record.
func (n *Normalizer) Note(raw map[string]any) (models.Note, bool, error) {
	rec, id, migrated, err := prepare(KindNote, raw)
	if err != nil {
		return models.Note{}, false, err
	}

	projectID := text(rec["project_id"])
	if projectID == "" {
		return models.Note{}, false, apperr.Validation(string(KindNote), "project_id", "missing project")
	}

	note := models.Note{
		NoteID:      id,
		ProjectID:   projectID,
		Title:       text(rec["title"]),
		Filename:    text(rec["filename"]),
		Content:     text(rec["content"]),
		Status:      models.ParseNoteStatus(text(rec["status"])),
		Tags:        tagList(rec["tags"]),
		Description: text(rec["description"]),
		Order:       integer(rec["order"]),
		Archived:    boolean(rec["archived"]),
	}
	if note.Title == "" {
		note.Title = strings.TrimSuffix(note.Filename, ".txt")
	}
	if note.Title == "" {
		note.Title = "Untitled"
	}
	if note.Filename == "" {
		note.Filename = note.Title + ".txt"
	}
	note.CreatedAt = n.createdAt(rec)
	if t, ok := timestamp(rec["last_updated"]); ok {
		note.LastUpdated = t
	} else {
		note.LastUpdated = note.CreatedAt
	}
	return note, migrated, nil
}

func (n *Normalizer) createdAt(rec map[string]any) time.Time {
	if t, ok := timestamp(rec["created_at"]); ok {
		return t
	}
	return models.Timestamp(n.now())
}

// Projects normalizes a batch of project records.
func (n *Normalizer) Projects(raws []map[string]any) ([]models.Project, Report) {
	return batch(n, KindProject, raws, n.Project, func(p models.Project) string { return p.ProjectID })
}

// Tasks normalizes a batch of task records.
func (n *Normalizer) Tasks(raws []map[string]any) ([]models.Task, Report) {
	return batch(n, KindTask, raws, n.Task, func(t models.Task) string { return t.TaskID })
}

// NoteProjects normalizes a batch of note-project records.
func (n *Normalizer) NoteProjects(raws []map[string]any) ([]models.NoteProject, Report) {
	return batch(n, KindNoteProject, raws, n.NoteProject, func(p models.NoteProject) string { return p.ProjectID })
}

// Notes normalizes a batch of note records.
func (n *Normalizer) Notes(raws []map[string]any) ([]models.Note, Report) {
	return batch(n, KindNote, raws, n.Note, func(note models.Note) string { return note.NoteID })
}

// storedKey returns the key raw is stored under when it differs from the
// canonical string id.
func storedKey(kind Kind, raw map[string]any, id string) (storage.LegacyKey, bool) {
	idField := idFields[kind]
	v := raw[idField]
	if s, ok := v.(string); ok && s == id {
		return storage.LegacyKey{}, false
	}
	if got, ok := identifier(v); ok && got == id {
		return storage.LegacyKey{ID: id, Field: idField, Value: v}, true
	}
	return storage.LegacyKey{ID: id, Field: "id", Value: raw["id"]}, true
}

// batch keeps one record for every id. A record stored under its canonical
// key wins over a legacy-keyed duplicate; otherwise the first one seen is
// kept. Skipped duplicates under a legacy key are still reported in Rekeyed
// so that the stale copy is retired.
func batch[T any](
	n *Normalizer,
	kind Kind,
	raws []map[string]any,
	one func(map[string]any) (T, bool, error),
	idOf func(T) string,
) ([]T, Report) {
	report := Report{Kind: kind}
	out := make([]T, 0, len(raws))
	type kept struct {
		index    int
		legacy   bool
		migrated bool
	}
	seen := make(map[string]kept, len(raws))

	for i, raw := range raws {
		v, migrated, err := one(raw)
		if err != nil {
			report.Skipped++
			n.logger.Warn("skipping malformed record",
				slog.String("kind", string(kind)),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		id := idOf(v)
		key, legacy := storedKey(kind, raw, id)
		if legacy {
			report.Rekeyed = append(report.Rekeyed, key)
		}
		if prev, dup := seen[id]; dup {
			report.Skipped++
			n.logger.Warn("skipping duplicate record",
				slog.String("kind", string(kind)),
				slog.String("id", id))
			if prev.legacy && !legacy {
				out[prev.index] = v
				seen[id] = kept{index: prev.index, migrated: migrated}
			}
			continue
		}
		seen[id] = kept{index: len(out), legacy: legacy, migrated: migrated}
		out = append(out, v)
	}
	for _, k := range seen {
		if k.migrated {
			report.Migrated++
		}
	}
	report.Loaded = len(out)
	return out, report
}
