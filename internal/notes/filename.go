package notes

import (
	"fmt"
	"strings"
)

const (
	noteExt      = ".txt"
	defaultTitle = "New Note"
)

// cleanTitle trims a user supplied title and drops a trailing .txt.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if strings.HasSuffix(strings.ToLower(title), noteExt) {
		title = strings.TrimSpace(title[:len(title)-len(noteExt)])
	}
	return title
}

// uniqueFilename probes "T.txt", "T (2).txt", "T (3).txt" and so on until
// taken reports a free name.
func uniqueFilename(title string, taken func(string) bool) string {
	name := title + noteExt
	for n := 2; taken(name); n++ {
		name = fmt.Sprintf("%s (%d)%s", title, n, noteExt)
	}
	return name
}

// filenameTaken returns a probe over the filenames used in projectID,
// ignoring the note self.
func (m *Manager) filenameTaken(projectID, self string) func(string) bool {
	used := map[string]struct{}{}
	for _, n := range m.notes.Sorted() {
		if n.ProjectID == projectID && n.NoteID != self {
			used[strings.ToLower(n.Filename)] = struct{}{}
		}
	}
	return func(name string) bool {
		_, ok := used[strings.ToLower(name)]
		return ok
	}
}
