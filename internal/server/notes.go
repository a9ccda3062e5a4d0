package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifeos/internal/notes"
)

type noteRequest struct {
	ProjectID   *string   `json:"project_id"`
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	Description *string   `json:"description"`
}

type moveRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

type noteOrderRequest struct {
	ProjectID string   `json:"project_id" binding:"required"`
	IDs       []string `json:"ids" binding:"required"`
}

type contentRequest struct {
	Content string `json:"content"`
}

// handleListNotes returns the notes of one project, or of all projects,
// most recently updated first.
func (s *Server) handleListNotes(c *gin.Context) {
	list := current(c).Notes.Notes(c.Query("project_id"))
	respondSuccess(c, http.StatusOK, gin.H{"notes": list})
}

// handleNoteStructure returns every visible project with its notes.
func (s *Server) handleNoteStructure(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"structure": current(c).Notes.Structure()})
}

// handleNoteContent looks a note up by id or by project and filename.
func (s *Server) handleNoteContent(c *gin.Context) {
	m := current(c).Notes
	var (
		note any
		err  error
	)
	if id := c.Query("note_id"); id != "" {
		note, err = m.Note(id)
	} else {
		projectID, filename := c.Query("project_id"), c.Query("filename")
		if projectID == "" || filename == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "note_id or project_id and filename are required"})
			return
		}
		note, err = m.NoteByFilename(projectID, filename)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note})
}

// handleGetNote returns one note with its content.
func (s *Server) handleGetNote(c *gin.Context) {
	ws := current(c)
	note, err := ws.Notes.Note(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note, "draft_pending": ws.Drafts.Pending(note.NoteID)})
}

// handleCreateNote adds a note to a project.
func (s *Server) handleCreateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	in := notes.NoteInput{
		ProjectID:   getString(req.ProjectID),
		Title:       getString(req.Title),
		Content:     getString(req.Content),
		Status:      getString(req.Status),
		Description: getString(req.Description),
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	note, err := current(c).Notes.CreateNote(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"note": note})
}

// handleUpdateNote merges the supplied fields into a note.
func (s *Server) handleUpdateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	note, err := current(c).UpdateNote(c.Request.Context(), c.Param("id"), notes.NotePatch{
		Title:       req.Title,
		Content:     req.Content,
		Status:      req.Status,
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note})
}

// handleNoteDraft buffers editor content; the autosaver persists it after
// a quiet period.
func (s *Server) handleNoteDraft(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ws := current(c)
	id := c.Param("id")

	ws.Lock()
	_, err := ws.Notes.Note(id)
	ws.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}

	ws.Drafts.Edit(id, req.Content)
	respondSuccess(c, http.StatusAccepted, gin.H{"status": "pending"})
}

// handleDeleteNote removes a note.
func (s *Server) handleDeleteNote(c *gin.Context) {
	if err := current(c).DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleMoveNote moves a note to another project.
func (s *Server) handleMoveNote(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	note, err := current(c).Notes.MoveNote(c.Request.Context(), c.Param("id"), req.ProjectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note})
}

// handleArchiveNote archives or restores a note.
func (s *Server) handleArchiveNote(c *gin.Context) {
	var req archiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	note, err := current(c).Notes.ArchiveNote(c.Request.Context(), c.Param("id"), req.archived())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note})
}

// handleReorderNotes assigns display order within one project.
func (s *Server) handleReorderNotes(c *gin.Context) {
	var req noteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := current(c).Notes.ReorderNotes(c.Request.Context(), req.ProjectID, req.IDs); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reordered"})
}

// handleQuickNote appends to the QuickNote of the system project.
func (s *Server) handleQuickNote(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	note, err := current(c).Notes.QuickAppend(c.Request.Context(), req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"note": note})
}
