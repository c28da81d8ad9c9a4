package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/coursechat/internal/database"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/models"
)

func userInfo(u models.User) dto.UserInfo {
	return dto.UserInfo{ID: u.ID.String(), Name: u.Name, Role: u.Role}
}

func formatMessageResponse(m models.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.CourseID.String(),
		UserID:    m.UserID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		User:      userInfo(m.User),
	}
}

func formatCourseResponse(c models.Course) dto.CourseResponse {
	videos := make([]dto.VideoResponse, 0, len(c.Videos))
	for _, v := range c.Videos {
		videos = append(videos, formatVideoResponse(v))
	}
	return dto.CourseResponse{
		ID:          c.ID.String(),
		Title:       c.Title,
		Description: c.Description,
		Payment:     c.Payment,
		Price:       c.Price,
		Tutor:       userInfo(c.Tutor),
		Videos:      videos,
		CreatedAt:   c.CreatedAt,
	}
}

func formatVideoResponse(v models.Video) dto.VideoResponse {
	return dto.VideoResponse{
		ID:         v.ID.String(),
		Title:      v.Title,
		URL:        v.URL,
		Position:   v.Position,
		Transcript: v.Transcript,
	}
}

func formatNotificationResponse(n models.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.ID.String(),
		Message:   n.Message,
		Read:      n.Read,
		Type:      n.Type,
		CreatedAt: n.CreatedAt,
	}
	if n.CourseID != nil {
		resp.CourseID = n.CourseID.String()
	}
	return resp
}

func formatNotifications(list []models.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, formatNotificationResponse(n))
	}
	return out
}

// dbError отвечает 404 на ErrNotFound и 500 на остальное
func dbError(c *gin.Context, err error, what string) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load " + what})
}
