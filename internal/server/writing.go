package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"lifeos/internal/models"
	"lifeos/internal/notes"
)

type noteProjectRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

type noteProjectView struct {
	models.NoteProject
	NotesCount int
}

func (v noteProjectView) MarshalJSON() ([]byte, error) {
	doc := v.NoteProject.Document()
	doc["notes_count"] = v.NotesCount
	return json.Marshal(doc)
}

// handleListNoteProjects returns the note projects with their note counts.
func (s *Server) handleListNoteProjects(c *gin.Context) {
	archived, ok := parseBool(c, "archived")
	if !ok {
		return
	}
	m := current(c).Notes
	list := m.Projects()
	if archived != nil {
		list = m.ProjectsArchived(*archived)
	}
	views := make([]noteProjectView, len(list))
	for i, p := range list {
		views[i] = noteProjectView{NoteProject: p, NotesCount: m.NotesCount(p.ProjectID)}
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": views})
}

// handleCreateNoteProject creates a folder for notes.
func (s *Server) handleCreateNoteProject(c *gin.Context) {
	var req noteProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	in := notes.ProjectInput{Name: getString(req.Name), Description: getString(req.Description)}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	project, err := current(c).Notes.CreateProject(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateNoteProject renames or describes a note project.
func (s *Server) handleUpdateNoteProject(c *gin.Context) {
	var req noteProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	project, err := current(c).Notes.UpdateProject(c.Request.Context(), c.Param("id"), notes.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteNoteProject removes a note project and its notes.
func (s *Server) handleDeleteNoteProject(c *gin.Context) {
	if err := current(c).Notes.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleArchiveNoteProject archives or restores a note project and its
// notes.
func (s *Server) handleArchiveNoteProject(c *gin.Context) {
	var req archiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	project, err := current(c).Notes.ArchiveProject(c.Request.Context(), c.Param("id"), req.archived())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleReorderNoteProjects assigns display order from the submitted ids.
func (s *Server) handleReorderNoteProjects(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := current(c).Notes.ReorderProjects(c.Request.Context(), req.IDs); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reordered"})
}
