package server

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const maxChatMessageLength = 4000

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id"`
	UserID         *int64 `json:"user_id"`
}

// handleChat runs one agent turn for the caller.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	user := currentUser(c)
	if req.UserID != nil && *req.UserID != user.ID {
		s.respondError(c, fmt.Errorf("%w: user_id does not match the authenticated user", errForbidden))
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.respondError(c, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}
	if utf8.RuneCountInString(message) > maxChatMessageLength {
		s.respondError(c, fmt.Errorf("%w: message must be %d characters or less", errBadRequest, maxChatMessageLength))
		return
	}

	result, err := s.chat.Send(c.Request.Context(), user.ID, req.ConversationID, message)
	if err != nil {
		if result.ConversationID != 0 {
			s.respondErrorWith(c, err, gin.H{"conversation_id": result.ConversationID})
			return
		}
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// handleListMessages returns the history of one of the caller's conversations.
func (s *Server) handleListMessages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	messages, err := s.chat.Messages(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"conversation_id": id, "messages": messages})
}
