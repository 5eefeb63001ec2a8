package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"todoapp/internal/auth"
	"todoapp/internal/models"
	"todoapp/internal/todo"
	"todoapp/internal/util"
)

const (
	requestIDHeader = "X-Request-ID"
	userKey         = "user"
)

// requestID tags every request with an id and a logger that carries it.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		logger := s.logger.With(slog.String("request_id", id))
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

// accessLog writes one line per API request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api") {
			return
		}
		level := slog.LevelInfo
		if path == "/api/healthz" {
			level = slog.LevelDebug
		}
		util.LoggerFrom(c.Request.Context(), s.logger).Log(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// cors allows the configured browser origins. Entries without an http(s)
// scheme are skipped.
func (s *Server) cors() gin.HandlerFunc {
	var origins []string
	for _, o := range s.opts.CORSOrigins {
		if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			origins = append(origins, strings.TrimSuffix(o, "/"))
			continue
		}
		s.logger.Warn("ignoring cors origin", slog.String("origin", o))
	}
	if len(origins) == 0 {
		return nil
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requireUser authenticates the bearer token and loads the caller.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		userID, err := s.tokens.Parse(token)
		if err != nil {
			s.respondError(c, err)
			return
		}
		user, err := s.store.GetUser(c.Request.Context(), userID)
		if errors.Is(err, todo.ErrNotFound) {
			s.respondError(c, auth.ErrInvalidToken)
			return
		}
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.Set(userKey, user)
		logger := util.LoggerFrom(c.Request.Context(), s.logger).With(slog.Int64("user_id", user.ID))
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

// currentUser returns the user stored by requireUser.
func currentUser(c *gin.Context) models.User {
	user, _ := c.MustGet(userKey).(models.User)
	return user
}
