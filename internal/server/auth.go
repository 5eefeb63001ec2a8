package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"todoapp/internal/auth"
	"todoapp/internal/models"
	"todoapp/internal/todo"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        models.User `json:"user"`
}

// handleRegister creates an account and signs the new user in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	user, err := s.store.CreateUser(c.Request.Context(), strings.TrimSpace(req.Username), req.Email, hash)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondToken(c, http.StatusCreated, user)
}

// handleLogin exchanges credentials for an access token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	user, err := s.store.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, todo.ErrNotFound) {
		s.respondError(c, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondToken(c, http.StatusOK, user)
}

// handleMe returns the authenticated user.
func (s *Server) handleMe(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"user": currentUser(c)})
}

func (s *Server) respondToken(c *gin.Context, status int, user models.User) {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, status, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	})
}
