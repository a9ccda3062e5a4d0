package models

// Priority of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is assigned when no valid priority is supplied.
const DefaultPriority = PriorityMedium

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// ParsePriority returns the priority named by s, or DefaultPriority when s is
// not one of the known values.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.Valid() {
		return p
	}
	return DefaultPriority
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank orders priorities from critical (0) to low (3). Unknown values rank
// after every known one.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// Status of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// DefaultStatus is assigned when no valid status is supplied.
const DefaultStatus = StatusPending

var statusRank = map[Status]int{
	StatusInProgress: 0,
	StatusPending:    1,
	StatusCompleted:  2,
	StatusArchived:   3,
}

// ParseStatus returns the status named by s, or DefaultStatus.
func ParseStatus(s string) Status {
	st := Status(s)
	if st.Valid() {
		return st
	}
	return DefaultStatus
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank orders statuses for display: in progress, pending, completed, archived.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

// NoteStatus is the editorial state of a note.
type NoteStatus string

const (
	NoteDraft    NoteStatus = "draft"
	NoteInReview NoteStatus = "in_review"
	NoteComplete NoteStatus = "complete"
)

// ParseNoteStatus returns the note status named by s, or NoteDraft.
func ParseNoteStatus(s string) NoteStatus {
	switch NoteStatus(s) {
	case NoteDraft, NoteInReview, NoteComplete:
		return NoteStatus(s)
	}
	return NoteDraft
}
