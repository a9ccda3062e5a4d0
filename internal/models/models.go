package models

import (
	"encoding/json"
	"time"
)

// Reserved project identifiers. They always exist and can never be deleted
// or renamed.
const (
	GeneralProjectID = "general"
	ArchiveProjectID = "archive"
	SystemProjectID  = "system"
)

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "#6366f1"

// DefaultProjectIcon is used when a project is created without an icon.
const DefaultProjectIcon = "📁"

// ProjectColors is the palette offered to new projects.
var ProjectColors = []string{
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#06b6d4", // cyan
}

// Project groups tasks.
type Project struct {
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsReservedProject reports whether id names one of the task projects that
// cannot be deleted, renamed or archived.
func IsReservedProject(id string) bool {
	return id == GeneralProjectID || id == ArchiveProjectID
}

// MarshalJSON adds the "id" alias expected by older readers.
func (p Project) MarshalJSON() ([]byte, error) {
	type plain Project
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{p.ProjectID, plain(p)})
}

// Task is a single unit of work, optionally scheduled between two dates.
type Task struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ProjectID    string    `json:"project_id"`
	StartDate    Date      `json:"start_date"`
	EndDate      Date      `json:"end_date"`
	ExecutionDay Date      `json:"execution_day"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	Tags         []string  `json:"tags"`
	Notes        string    `json:"notes"`
	Reminder     any       `json:"reminder"`
	Order        int       `json:"order"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"created_at"`
}

// MarshalJSON adds the "id" alias expected by older readers.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{t.TaskID, plain(t)})
}

// Complete marks the task as completed. Completing twice is a no-op.
func (t *Task) Complete() {
	t.Status = StatusCompleted
}

// Archive marks the task as archived and moves it to the archive project.
func (t *Task) Archive() {
	t.Status = StatusArchived
	t.ProjectID = ArchiveProjectID
	t.Archived = true
}

// IsArchived reports whether the task was archived directly or through its
// project.
func (t Task) IsArchived() bool {
	return t.Archived || t.Status == StatusArchived
}

// EarliestDate returns the earlier of StartDate and EndDate, ignoring unset
// values. The zero Date is returned when neither is set.
func (t Task) EarliestDate() Date {
	switch {
	case t.StartDate.IsZero():
		return t.EndDate
	case t.EndDate.IsZero():
		return t.StartDate
	case t.EndDate < t.StartDate:
		return t.EndDate
	default:
		return t.StartDate
	}
}

// Timestamp normalizes t to UTC at millisecond precision, which every
// backend can store without loss.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
