package models

// Document encodings write the canonical field set plus an "id" alias that
// mirrors the entity's own id field. Dates are date-only strings or nil.

func dateValue(d Date) any {
	if d.IsZero() {
		return nil
	}
	return string(d)
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Document returns the persisted representation of the project.
func (p Project) Document() map[string]any {
	return map[string]any{
		"project_id":  p.ProjectID,
		"id":          p.ProjectID,
		"name":        p.Name,
		"color":       p.Color,
		"icon":        p.Icon,
		"description": p.Description,
		"order":       p.Order,
		"archived":    p.Archived,
		"created_at":  p.CreatedAt,
	}
}

// Document returns the persisted representation of the task.
func (t Task) Document() map[string]any {
	return map[string]any{
		"task_id":       t.TaskID,
		"id":            t.TaskID,
		"title":         t.Title,
		"description":   t.Description,
		"project_id":    t.ProjectID,
		"start_date":    dateValue(t.StartDate),
		"end_date":      dateValue(t.EndDate),
		"execution_day": dateValue(t.ExecutionDay),
		"priority":      string(t.Priority),
		"status":        string(t.Status),
		"tags":          cloneTags(t.Tags),
		"notes":         t.Notes,
		"reminder":      t.Reminder,
		"order":         t.Order,
		"archived":      t.Archived,
		"created_at":    t.CreatedAt,
	}
}

// Document returns the persisted representation of the note project.
func (p NoteProject) Document() map[string]any {
	return map[string]any{
		"project_id":  p.ProjectID,
		"id":          p.ProjectID,
		"name":        p.Name,
		"description": p.Description,
		"tags":        cloneTags(p.Tags),
		"order":       p.Order,
		"created_at":  p.CreatedAt,
		"archived":    p.Archived,
		"is_system":   p.IsSystem,
	}
}

// Document returns the persisted representation of the note.
func (n Note) Document() map[string]any {
	return map[string]any{
		"note_id":      n.NoteID,
		"id":           n.NoteID,
		"project_id":   n.ProjectID,
		"title":        n.Title,
		"filename":     n.Filename,
		"content":      n.Content,
		"status":       string(n.Status),
		"tags":         cloneTags(n.Tags),
		"description":  n.Description,
		"order":        n.Order,
		"created_at":   n.CreatedAt,
		"last_updated": n.LastUpdated,
		"archived":     n.Archived,
	}
}
