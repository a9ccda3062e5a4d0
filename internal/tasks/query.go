package tasks

import (
	"cmp"
	"slices"
	"strings"

	"lifeos/internal/models"
)

// Sort names a task ordering.
type Sort string

const (
	SortOrder    Sort = "order"
	SortPriority Sort = "priority"
	SortDate     Sort = "date"
	SortStatus   Sort = "status"
)

// ParseSort maps a query value to a Sort, falling back to SortOrder.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriority:
		return SortPriority
	case SortDate, "due_date", "end_date":
		return SortDate
	case SortStatus:
		return SortStatus
	}
	return SortOrder
}

// Filter selects tasks. Empty fields do not filter; set fields are ANDed.
type Filter struct {
	ProjectID string
	Status    string
	Priority  string
	Search    string
	Archived  *bool
}

// Match reports whether t passes every set filter.
func (f Filter) Match(t models.Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	if f.Archived != nil && t.IsArchived() != *f.Archived {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return matchesSearch(t, q)
	}
	return true
}

func matchesSearch(t models.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// sortTasks orders tasks in place by criterion, then by order. The sort is
// stable, so callers pass tasks already in insertion order.
func sortTasks(tasks []models.Task, by Sort) {
	var key func(a, b models.Task) int
	switch by {
	case SortPriority:
		key = func(a, b models.Task) int { return cmp.Compare(a.Priority.Rank(), b.Priority.Rank()) }
	case SortStatus:
		key = func(a, b models.Task) int { return cmp.Compare(a.Status.Rank(), b.Status.Rank()) }
	case SortDate:
		key = compareDates
	default:
		key = func(models.Task, models.Task) int { return 0 }
	}
	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		return cmp.Or(key(a, b), cmp.Compare(a.Order, b.Order))
	})
}

// compareDates orders by earliest date with dateless tasks last.
func compareDates(a, b models.Task) int {
	da, db := a.EarliestDate(), b.EarliestDate()
	switch {
	case da.IsZero() && db.IsZero():
		return 0
	case da.IsZero():
		return 1
	case db.IsZero():
		return -1
	}
	return strings.Compare(string(da), string(db))
}
