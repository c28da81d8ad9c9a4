package courseview

import (
	"context"

	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/notifications"
	"github.com/thereayou/coursechat/internal/realtime"
)

// Backend - REST API курса. *apiclient.Client подходит как есть.
type Backend interface {
	GetCourse(ctx context.Context, courseID string) (*dto.CourseResponse, error)
	ChatHistory(ctx context.Context, courseID string) ([]dto.MessageResponse, error)
	GenerateTranscript(ctx context.Context, courseID, videoID string) (string, error)
	DeleteVideo(ctx context.Context, courseID, videoID string) error
}

// Room - открытое realtime-подключение к комнате курса
type Room interface {
	Send(roomID, senderID, body string) error
	State() realtime.State
	JoinedRoom() bool
}

type Connector interface {
	Open(ctx context.Context, roomID string, creds realtime.Credentials, h realtime.Handlers) (Room, error)
	Close(r Room)
}

// Identity - авторизованный пользователь. *account.Session подходит как есть.
type Identity interface {
	Credentials() realtime.Credentials
	Notifications() *notifications.Reconciler
}

type managerConnector struct {
	m *realtime.Manager
}

// Realtime подключает binder к realtime.Manager
func Realtime(m *realtime.Manager) Connector {
	return managerConnector{m: m}
}

func (c managerConnector) Open(ctx context.Context, roomID string, creds realtime.Credentials, h realtime.Handlers) (Room, error) {
	s, err := c.m.Open(ctx, roomID, creds, h)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c managerConnector) Close(r Room) {
	if s, ok := r.(*realtime.Session); ok {
		c.m.Close(s)
	}
}
