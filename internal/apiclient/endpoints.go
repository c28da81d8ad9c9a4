package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/thereayou/coursechat/internal/handlers/dto"
)

// Auth

func (c *Client) Signup(ctx context.Context, req dto.SignupRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Courses and videos

func (c *Client) ListCourses(ctx context.Context) ([]dto.CourseResponse, error) {
	var out []dto.CourseResponse
	err := c.do(ctx, http.MethodGet, "/api/courses", nil, &out)
	return out, err
}

func (c *Client) TutorCourses(ctx context.Context) ([]dto.CourseResponse, error) {
	var out []dto.CourseResponse
	err := c.do(ctx, http.MethodGet, "/api/courses/tutor", nil, &out)
	return out, err
}

func (c *Client) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	var out dto.CourseResponse
	if err := c.do(ctx, http.MethodPost, "/api/courses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCourse(ctx context.Context, courseID string) (*dto.CourseResponse, error) {
	var out dto.CourseResponse
	if err := c.do(ctx, http.MethodGet, coursePath(courseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddVideo(ctx context.Context, courseID string, req dto.AddVideoRequest) (*dto.VideoResponse, error) {
	var out dto.VideoResponse
	if err := c.do(ctx, http.MethodPost, coursePath(courseID)+"/videos", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteVideo(ctx context.Context, courseID, videoID string) error {
	return c.do(ctx, http.MethodDelete, videoPath(courseID, videoID), nil, nil)
}

func (c *Client) GetTranscript(ctx context.Context, courseID, videoID string) (string, error) {
	return c.transcript(ctx, http.MethodGet, courseID, videoID)
}

func (c *Client) GenerateTranscript(ctx context.Context, courseID, videoID string) (string, error) {
	return c.transcript(ctx, http.MethodPost, courseID, videoID)
}

func (c *Client) DeleteTranscript(ctx context.Context, courseID, videoID string) error {
	_, err := c.transcript(ctx, http.MethodDelete, courseID, videoID)
	return err
}

func (c *Client) transcript(ctx context.Context, method, courseID, videoID string) (string, error) {
	var out dto.TranscriptResponse
	if err := c.do(ctx, method, videoPath(courseID, videoID)+"/transcript", nil, &out); err != nil {
		return "", err
	}
	return out.Transcript, nil
}

func (c *Client) Enroll(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodPost, "/api/enrollment", dto.EnrollRequest{CourseID: courseID}, nil)
}

// Chat

// ChatHistory возвращает последние сообщения курса, старые первыми
func (c *Client) ChatHistory(ctx context.Context, courseID string) ([]dto.MessageResponse, error) {
	var out dto.MessagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(courseID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Notifications

func (c *Client) ListNotifications(ctx context.Context) ([]dto.NotificationResponse, error) {
	var out []dto.NotificationResponse
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out, err
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out dto.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) ([]dto.NotificationResponse, error) {
	var out []dto.NotificationResponse
	err := c.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, &out)
	return out, err
}

func coursePath(courseID string) string {
	return "/api/courses/" + url.PathEscape(courseID)
}

func videoPath(courseID, videoID string) string {
	return coursePath(courseID) + "/videos/" + url.PathEscape(videoID)
}
