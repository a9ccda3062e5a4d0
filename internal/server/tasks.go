package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifeos/internal/models"
	"lifeos/internal/tasks"
)

type taskRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	ProjectID    *string   `json:"project_id"`
	StartDate    *string   `json:"start_date"`
	EndDate      *string   `json:"end_date"`
	ExecutionDay *string   `json:"execution_day"`
	Priority     *string   `json:"priority"`
	Status       *string   `json:"status"`
	Tags         *[]string `json:"tags"`
	Notes        *string   `json:"notes"`
	Reminder     *any      `json:"reminder"`
	Order        *int      `json:"order"`
}

func datePtr(v *string) *models.Date {
	if v == nil {
		return nil
	}
	d := models.ParseDate(*v)
	return &d
}

// handleListTasks returns tasks filtered and sorted by the query string.
// Archived tasks are hidden unless archived is given.
func (s *Server) handleListTasks(c *gin.Context) {
	archived, ok := parseBool(c, "archived")
	if !ok {
		return
	}
	if archived == nil {
		hide := false
		archived = &hide
	}
	filter := tasks.Filter{
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		Archived:  archived,
	}
	list := current(c).Tasks.Query(filter, tasks.ParseSort(c.Query("sort")))
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list})
}

// handleCreateTask inserts a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	in := tasks.TaskInput{
		Title:        getString(req.Title),
		Description:  getString(req.Description),
		ProjectID:    getString(req.ProjectID),
		StartDate:    models.ParseDate(getString(req.StartDate)),
		EndDate:      models.ParseDate(getString(req.EndDate)),
		ExecutionDay: models.ParseDate(getString(req.ExecutionDay)),
		Priority:     getString(req.Priority),
		Status:       getString(req.Status),
		Notes:        getString(req.Notes),
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	if req.Reminder != nil {
		in.Reminder = *req.Reminder
	}

	task, err := current(c).Tasks.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask merges the supplied fields into a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := current(c).Tasks.Update(c.Request.Context(), c.Param("id"), tasks.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		StartDate:    datePtr(req.StartDate),
		EndDate:      datePtr(req.EndDate),
		ExecutionDay: datePtr(req.ExecutionDay),
		Priority:     req.Priority,
		Status:       req.Status,
		Tags:         req.Tags,
		Notes:        req.Notes,
		Reminder:     req.Reminder,
		Order:        req.Order,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := current(c).Tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleCompleteTask marks a task completed.
func (s *Server) handleCompleteTask(c *gin.Context) {
	task, err := current(c).Tasks.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleArchiveTask moves a task to the archive.
func (s *Server) handleArchiveTask(c *gin.Context) {
	task, err := current(c).Tasks.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleReorderTasks assigns display order from the submitted id list.
func (s *Server) handleReorderTasks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := current(c).Tasks.Reorder(c.Request.Context(), req.IDs); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reordered"})
}
