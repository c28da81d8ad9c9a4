package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/coursechat/internal/handlers"
	"github.com/thereayou/coursechat/internal/middleware"
	"github.com/thereayou/coursechat/internal/models"
)

type Handlers struct {
	Auth           *handlers.AuthHandler
	Course         *handlers.CourseHandler
	Message        *handlers.MessageHandler
	Notification   *handlers.NotificationHandler
	WebSocket      *handlers.WebSocketHandler
	Authenticate   gin.HandlerFunc
	WSAuthenticate gin.HandlerFunc
}

func APIEndpoints(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", h.WSAuthenticate, h.WebSocket.HandleWebSocket)

	api := r.Group("/api")

	// Auth endpoints
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Authenticate, h.Auth.Logout)
	}

	protected := api.Group("", h.Authenticate)

	courses := protected.Group("/courses")
	{
		courses.GET("", h.Course.ListCourses)
		courses.GET("/tutor", middleware.RequireRole(models.RoleTutor), h.Course.ListTutorCourses)
		courses.POST("", middleware.RequireRole(models.RoleTutor), h.Course.CreateCourse)
		courses.GET("/:id", h.Course.GetCourse)
		courses.POST("/:id/videos", h.Course.AddVideo)
		courses.DELETE("/:id/videos/:videoId", h.Course.DeleteVideo)
		courses.GET("/:id/videos/:videoId/transcript", h.Course.GetTranscript)
		courses.POST("/:id/videos/:videoId/transcript", h.Course.GenerateTranscript)
		courses.DELETE("/:id/videos/:videoId/transcript", h.Course.DeleteTranscript)
	}

	protected.POST("/enrollment", h.Course.Enroll)
	protected.GET("/chat/:courseId", h.Message.GetCourseMessages)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.List)
		notifications.GET("/unread-count", h.Notification.UnreadCount)
		notifications.PUT("/read-all", h.Notification.MarkAllRead)
		notifications.PUT("/:id/read", h.Notification.MarkRead)
	}
}
