package models

import (
	"encoding/json"
	"time"
)

// NoteProject is a folder of notes owned by one user.
type NoteProject struct {
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	Archived    bool      `json:"archived"`
	IsSystem    bool      `json:"is_system"`
}

// MarshalJSON adds the "id" alias expected by older readers.
func (p NoteProject) MarshalJSON() ([]byte, error) {
	type plain NoteProject
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{p.ProjectID, plain(p)})
}

// Note is a text document stored inside a NoteProject.
type Note struct {
	NoteID      string     `json:"note_id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Filename    string     `json:"filename"`
	Content     string     `json:"content"`
	Status      NoteStatus `json:"status"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated time.Time  `json:"last_updated"`
	Archived    bool       `json:"archived"`
}

// MarshalJSON adds the "id" alias expected by older readers.
func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{n.NoteID, plain(n)})
}
