package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lifeos/internal/tasks"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// archived returns the requested flag, defaulting to true for a bare
// archive call.
func (r archiveRequest) archived() bool {
	return r.Archived == nil || *r.Archived
}

type reorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// handleListProjects returns the projects with their task counts.
func (s *Server) handleListProjects(c *gin.Context) {
	archived, ok := parseBool(c, "archived")
	if !ok {
		return
	}
	ws := current(c)
	projects := ws.Projects.List()
	if archived != nil {
		projects = ws.Projects.ListArchived(*archived)
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": tasks.Summarize(projects, ws.Tasks.List())})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := current(c).Projects.Create(c.Request.Context(), tasks.ProjectInput{
		Name:        getString(req.Name),
		Color:       getString(req.Color),
		Icon:        getString(req.Icon),
		Description: getString(req.Description),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject merges the supplied fields into a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := current(c).Projects.Update(c.Request.Context(), c.Param("id"), tasks.ProjectPatch{
		Name:        req.Name,
		Color:       req.Color,
		Icon:        req.Icon,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and moves its tasks to general.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := current(c).Projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleArchiveProject archives or restores a project and its tasks.
func (s *Server) handleArchiveProject(c *gin.Context) {
	var req archiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	project, err := current(c).Projects.Archive(c.Request.Context(), c.Param("id"), req.archived())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleReorderProjects assigns display order from the submitted id list.
func (s *Server) handleReorderProjects(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := current(c).Projects.Reorder(c.Request.Context(), req.IDs); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reordered"})
}
