package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/coursechat/internal/handlers/dto"
)

func newTestAPI(t *testing.T, register func(r *gin.Engine)) *Client {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestErrorClassification(t *testing.T) {
	c := newTestAPI(t, func(r *gin.Engine) {
		r.GET("/api/courses/:id", func(c *gin.Context) {
			switch c.Param("id") {
			case "missing":
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			case "private":
				c.JSON(http.StatusForbidden, gin.H{"error": "not enrolled in this course"})
			case "broken":
				c.String(http.StatusInternalServerError, "boom")
			default:
				c.JSON(http.StatusOK, dto.CourseResponse{ID: c.Param("id"), Title: "Go"})
			}
		})
	})
	ctx := context.Background()

	course, err := c.GetCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Go", course.Title)

	tests := []struct {
		id      string
		kind    Kind
		status  int
		message string
		user    string
	}{
		{"missing", KindNotFound, 404, "course not found", "Course not found. It may have been deleted or does not exist."},
		{"private", KindForbidden, 403, "not enrolled in this course", "You do not have permission to access this course."},
		{"broken", KindServer, 500, "boom", "Server error. Please try again later."},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := c.GetCourse(ctx, tt.id)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.user, UserMessage(err))
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.ChatHistory(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "Network error. Please check your connection and try again.", UserMessage(err))
	assert.Equal(t, "Failed to load course data. Please try again later.", UserMessage(errors.New("other")))
}

func TestCanceledRequestIsNotANetworkError(t *testing.T) {
	release := make(chan struct{})
	c := newTestAPI(t, func(r *gin.Engine) {
		r.GET("/api/chat/:courseId", func(c *gin.Context) {
			<-release
			c.JSON(http.StatusOK, dto.MessagesResponse{})
		})
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.ChatHistory(ctx, "c1")
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestTokenAndUnauthorizedHook(t *testing.T) {
	c := newTestAPI(t, func(r *gin.Engine) {
		r.GET("/api/notifications/unread-count", func(c *gin.Context) {
			if c.GetHeader("Authorization") != "Bearer good" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: 3})
		})
	})
	ctx := context.Background()

	n, err := c.WithToken("good", nil).UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	calls := 0
	_, err = c.WithToken("bad", func() { calls++ }).UnreadCount(ctx)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, c.Token())
}

func TestNotificationEndpoints(t *testing.T) {
	c := newTestAPI(t, func(r *gin.Engine) {
		r.GET("/api/notifications", func(c *gin.Context) {
			c.JSON(http.StatusOK, []dto.NotificationResponse{{ID: "n1", Message: "hi", Type: "generic"}})
		})
		r.PUT("/api/notifications/:id/read", func(c *gin.Context) {
			if c.Param("id") != "n1" {
				c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
				return
			}
			c.JSON(http.StatusOK, dto.NotificationResponse{ID: "n1", Read: true})
		})
		r.PUT("/api/notifications/read-all", func(c *gin.Context) {
			c.JSON(http.StatusOK, []dto.NotificationResponse{{ID: "n1", Read: true}})
		})
	})
	ctx := context.Background()

	list, err := c.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	require.NoError(t, c.MarkNotificationRead(ctx, "n1"))
	assert.Equal(t, KindNotFound, KindOf(c.MarkNotificationRead(ctx, "n2")))

	all, err := c.MarkAllNotificationsRead(ctx)
	require.NoError(t, err)
	assert.True(t, all[0].Read)
}

func TestTranscriptEndpoints(t *testing.T) {
	c := newTestAPI(t, func(r *gin.Engine) {
		r.POST("/api/courses/:id/videos/:videoId/transcript", func(c *gin.Context) {
			c.JSON(http.StatusOK, dto.TranscriptResponse{VideoID: c.Param("videoId"), Transcript: "text of " + c.Param("videoId")})
		})
		r.DELETE("/api/courses/:id/videos/:videoId/transcript", func(c *gin.Context) {
			c.JSON(http.StatusOK, dto.TranscriptResponse{VideoID: c.Param("videoId")})
		})
		r.DELETE("/api/courses/:id/videos/:videoId", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
		})
	})
	ctx := context.Background()

	text, err := c.GenerateTranscript(ctx, "c1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "text of v1", text)

	require.NoError(t, c.DeleteTranscript(ctx, "c1", "v1"))
	require.NoError(t, c.DeleteVideo(ctx, "c1", "v1"))
}
