package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lifeos/internal/apperr"
	"lifeos/internal/storage"
	"lifeos/internal/util"
	"lifeos/internal/workspace"
)

const workspaceKey = "workspace"

// Options configures the HTTP surface.
type Options struct {
	StaticDir    string
	OwnerHeader  string
	DefaultOwner string
}

// Server provides the HTTP handlers for tasks, projects, notes and settings.
type Server struct {
	engine       *gin.Engine
	spaces       *workspace.Registry
	logger       *slog.Logger
	staticDir    string
	ownerHeader  string
	defaultOwner string
}

// New constructs the HTTP server with routes and middleware configured.
func New(spaces *workspace.Registry, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OwnerHeader == "" {
		opts.OwnerHeader = "X-User-ID"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:       router,
		spaces:       spaces,
		logger:       logger,
		staticDir:    opts.StaticDir,
		ownerHeader:  opts.OwnerHeader,
		defaultOwner: opts.DefaultOwner,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	owned := api.Group("", s.withWorkspace)

	// Draft edits are buffered by the autosaver, which takes the workspace
	// lock itself when it saves.
	owned.PUT("/notes/:id/draft", s.handleNoteDraft)

	locked := owned.Group("", s.serialized)
	{
		projects := locked.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.POST("/reorder", s.handleReorderProjects)
			projects.PUT("/:id", s.handleUpdateProject)
			projects.DELETE("/:id", s.handleDeleteProject)
			projects.PUT("/:id/archive", s.handleArchiveProject)
		}

		tasks := locked.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.POST("/reorder", s.handleReorderTasks)
			tasks.PUT("/:id", s.handleUpdateTask)
			tasks.DELETE("/:id", s.handleDeleteTask)
			tasks.PUT("/:id/complete", s.handleCompleteTask)
			tasks.PUT("/:id/archive", s.handleArchiveTask)
		}

		writing := locked.Group("/writing/projects")
		{
			writing.GET("", s.handleListNoteProjects)
			writing.POST("", s.handleCreateNoteProject)
			writing.PUT("/order", s.handleReorderNoteProjects)
			writing.PUT("/:id", s.handleUpdateNoteProject)
			writing.DELETE("/:id", s.handleDeleteNoteProject)
			writing.PUT("/:id/archive", s.handleArchiveNoteProject)
		}

		notes := locked.Group("/notes")
		{
			notes.GET("", s.handleListNotes)
			notes.POST("", s.handleCreateNote)
			notes.GET("/structure", s.handleNoteStructure)
			notes.GET("/content", s.handleNoteContent)
			notes.PUT("/order", s.handleReorderNotes)
			notes.POST("/quick", s.handleQuickNote)
			notes.GET("/:id", s.handleGetNote)
			notes.PUT("/:id", s.handleUpdateNote)
			notes.DELETE("/:id", s.handleDeleteNote)
			notes.PUT("/:id/move", s.handleMoveNote)
			notes.PUT("/:id/archive", s.handleArchiveNote)
		}

		locked.GET("/archive/all", s.handleArchiveAll)
		locked.GET("/settings", s.handleGetSettings)
		locked.PUT("/settings", s.handleUpdateSettings)
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// withWorkspace resolves the owner from the trusted identity header and
// loads that owner's workspace.
func (s *Server) withWorkspace(c *gin.Context) {
	owner := util.FirstNonEmpty(c.GetHeader(s.ownerHeader), s.defaultOwner)
	if err := storage.ValidOwner(owner); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		c.Abort()
		return
	}
	ws, err := s.spaces.Get(c.Request.Context(), owner)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		c.Abort()
		return
	}
	c.Set(workspaceKey, ws)
	c.Next()
}

// serialized holds the workspace lock for the rest of the request.
func (s *Server) serialized(c *gin.Context) {
	ws := current(c)
	ws.Lock()
	defer ws.Unlock()
	c.Next()
}

func current(c *gin.Context) *workspace.Workspace {
	return c.MustGet(workspaceKey).(*workspace.Workspace)
}

// parseBool reads an optional boolean query parameter.
func parseBool(c *gin.Context, name string) (*bool, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &v, true
}

// statusOf maps the error taxonomy to HTTP status codes.
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindReserved:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusOf(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// bindOptionalJSON decodes the body into v and accepts an empty body.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
