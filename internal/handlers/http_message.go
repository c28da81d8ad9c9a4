package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/middleware"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// GetCourseMessages отдаёт историю чата курса, старые первыми
func (h *MessageHandler) GetCourseMessages(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	courseID := c.Param("courseId")

	if _, err := uuid.Parse(courseID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	ok, err := h.db.CanAccessCourse(c.Request.Context(), userID.String(), courseID)
	if err != nil {
		dbError(c, err, "course")
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this course"})
		return
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}

	var beforeID *uuid.UUID
	if b := c.Query("before"); b != "" {
		if parsed, err := uuid.Parse(b); err == nil {
			beforeID = &parsed
		}
	}

	// берём на одно больше, чтобы узнать has_more
	messages, err := h.db.GetRoomMessages(c.Request.Context(), courseID, limit+1, beforeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[1:]
	}

	out := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, formatMessageResponse(m))
	}

	c.JSON(http.StatusOK, dto.MessagesResponse{Messages: out, HasMore: hasMore})
}
