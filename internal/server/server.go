package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todoapp/internal/agent"
	"todoapp/internal/auth"
	"todoapp/internal/chat"
	"todoapp/internal/storage/sqlite"
	"todoapp/internal/todo"
	"todoapp/internal/util"
)

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("forbidden")
)

// Options carries the optional parts of the server setup.
type Options struct {
	StaticDir   string
	CORSOrigins []string
}

// Server provides HTTP handlers for the todo API.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	tokens *auth.Tokens
	chat   *chat.Service
	logger *slog.Logger
	opts   Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, tokens *auth.Tokens, chatService *chat.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine: router,
		store:  store,
		tokens: tokens,
		chat:   chatService,
		logger: logger,
		opts:   opts,
	}

	router.Use(srv.requestID(), srv.accessLog())
	if mw := srv.cors(); mw != nil {
		router.Use(mw)
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
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
			authGroup.GET("/me", s.requireUser(), s.handleMe)
		}

		private := api.Group("", s.requireUser())
		{
			tasks := private.Group("/tasks")
			{
				tasks.GET("", s.handleListTasks)
				tasks.POST("", s.handleCreateTask)
				tasks.GET(":id", s.handleGetTask)
				tasks.PUT(":id", s.handleUpdateTask)
				tasks.DELETE(":id", s.handleDeleteTask)
				tasks.PATCH(":id/toggle", s.handleToggleTask)
			}

			private.POST("/chat", s.handleChat)
			private.GET("/conversations/:id/messages", s.handleListMessages)
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness, including the database.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, fmt.Errorf("database ping: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body, marking failures as bad requests.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps domain errors onto HTTP statuses and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, todo.ErrValidation), errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrMalformedHeader),
		errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, todo.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, sqlite.ErrConflict):
		return http.StatusConflict, "username or email already registered"
	case errors.Is(err, agent.ErrCompletion):
		return http.StatusBadGateway, "the assistant is unavailable right now, please try again later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, err error) {
	s.respondErrorWith(c, err, nil)
}

// respondErrorWith is respondError with extra fields merged into the payload.
func (s *Server) respondErrorWith(c *gin.Context, err error, fields gin.H) {
	status, message := statusFor(err)
	log := util.LoggerFrom(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	} else {
		log.Debug("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	}
	body := gin.H{}
	for k, v := range fields {
		body[k] = v
	}
	body["error"] = message
	c.AbortWithStatusJSON(status, body)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
