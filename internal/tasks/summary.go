package tasks

import (
	"encoding/json"
	"math"

	"lifeos/internal/models"
)

// ProjectSummary is a project with its task counts.
type ProjectSummary struct {
	models.Project
	TaskCount int
	DoneCount int
	Progress  int
}

// MarshalJSON flattens the counts next to the project fields.
func (s ProjectSummary) MarshalJSON() ([]byte, error) {
	doc := s.Project.Document()
	doc["task_count"] = s.TaskCount
	doc["done_count"] = s.DoneCount
	doc["progress"] = s.Progress
	return json.Marshal(doc)
}

// Summarize counts the tasks of every project. Progress is the rounded
// percentage of completed tasks, 0 for an empty project.
func Summarize(projects []models.Project, tasks []models.Task) []ProjectSummary {
	type counts struct{ total, done int }
	byProject := map[string]counts{}
	for _, t := range tasks {
		c := byProject[t.ProjectID]
		c.total++
		if t.Status == models.StatusCompleted {
			c.done++
		}
		byProject[t.ProjectID] = c
	}

	out := make([]ProjectSummary, len(projects))
	for i, p := range projects {
		c := byProject[p.ProjectID]
		s := ProjectSummary{Project: p, TaskCount: c.total, DoneCount: c.done}
		if c.total > 0 {
			s.Progress = int(math.Round(float64(c.done) * 100 / float64(c.total)))
		}
		out[i] = s
	}
	return out
}
