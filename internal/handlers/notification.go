package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/coursechat/internal/database"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/middleware"
)

type NotificationHandler struct {
	db *database.Database
}

func NewNotificationHandler(db *database.Database) *NotificationHandler {
	return &NotificationHandler{db: db}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	list, err := h.db.ListNotifications(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}
	c.JSON(http.StatusOK, formatNotifications(list))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	count, err := h.db.UnreadCount(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: int(count)})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	n, err := h.db.MarkNotificationRead(c.Request.Context(), userID.String(), c.Param("id"))
	if err != nil {
		dbError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, formatNotificationResponse(*n))
}

// MarkAllRead возвращает полный список после изменения
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	list, err := h.db.MarkAllNotificationsRead(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, formatNotifications(list))
}
