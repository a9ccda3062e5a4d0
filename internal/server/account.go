package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleArchiveAll returns everything the owner has archived.
func (s *Server) handleArchiveAll(c *gin.Context) {
	respondSuccess(c, http.StatusOK, current(c).Archive())
}

// handleGetSettings returns the owner's settings merged over the defaults.
func (s *Server) handleGetSettings(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"settings": current(c).Settings.Get()})
}

// handleUpdateSettings stores the known keys of the submitted object.
func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	settings, err := current(c).Settings.Update(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"settings": settings})
}
