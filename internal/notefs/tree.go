// Package notefs keeps notes as plain text files: one directory per note
// project and one .txt file per note.
package notefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lifeos/internal/models"
	"lifeos/internal/notes"
)

// Tree is a directory of note-project folders.
type Tree struct {
	root   string
	logger *slog.Logger
}

// New returns a Tree rooted at root. The directory is created on the first
// write.
func New(root string, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{root: root, logger: logger}
}

// Root returns the tree's directory.
func (t *Tree) Root() string { return t.root }

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "",
)

// sanitize turns a project name or filename into a single safe path
// element.
func sanitize(name string) string {
	name = strings.TrimSpace(unsafeChars.Replace(name))
	name = strings.Trim(name, ".")
	if name == "" {
		return "_"
	}
	return name
}

func (t *Tree) folder(name string) string {
	return filepath.Join(t.root, sanitize(name))
}

// WriteNote writes the note content to <project>/<filename>.
func (t *Tree) WriteNote(project models.NoteProject, note models.Note) error {
	dir := t.folder(project.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", dir, err)
	}
	return writeAtomic(filepath.Join(dir, sanitize(note.Filename)), []byte(note.Content))
}

// RemoveNote deletes <project>/<filename>. A missing file is not an error.
func (t *Tree) RemoveNote(project models.NoteProject, filename string) error {
	path := filepath.Join(t.folder(project.Name), sanitize(filename))
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove note %s: %w", path, err)
	}
	return nil
}

// RenameFolder renames a project folder when it exists.
func (t *Tree) RenameFolder(oldName, newName string) error {
	from, to := t.folder(oldName), t.folder(newName)
	if from == to {
		return nil
	}
	if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename folder %s: %w", from, err)
	}
	return nil
}

// RemoveFolder deletes a project folder and everything in it.
func (t *Tree) RemoveFolder(name string) error {
	dir := t.folder(name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove folder %s: %w", dir, err)
	}
	return nil
}

// Scan reads every folder of the tree as legacy notes. Folders and files
// come back sorted by name; files other than .txt are ignored.
func (t *Tree) Scan() ([]notes.ImportedFolder, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return nil, fmt.Errorf("read notes dir: %w", err)
	}

	var folders []notes.ImportedFolder
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folder, err := t.scanFolder(e.Name())
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func (t *Tree) scanFolder(name string) (notes.ImportedFolder, error) {
	dir := filepath.Join(t.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return notes.ImportedFolder{}, fmt.Errorf("read folder %s: %w", dir, err)
	}

	folder := notes.ImportedFolder{Name: name}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			t.logger.Warn("skipping unreadable note",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		info, err := e.Info()
		if err != nil {
			return notes.ImportedFolder{}, fmt.Errorf("stat %s: %w", path, err)
		}
		folder.Notes = append(folder.Notes, notes.ImportedNote{
			Title:    strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Content:  string(data),
			Modified: info.ModTime(),
		})
	}
	return folder, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".note-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
