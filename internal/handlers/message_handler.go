package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/thereayou/coursechat/internal/database"
	"github.com/thereayou/coursechat/internal/models"
	"github.com/thereayou/coursechat/internal/websocket"
)

const (
	maxMessageLength = 5000
	dbTimeout        = 5 * time.Second
	previewLength    = 60
)

type MessageHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewMessageHandler(db *database.Database, hub *websocket.Hub) *MessageHandler {
	return &MessageHandler{
		db:  db,
		hub: hub,
	}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeRoomJoin:
		return h.handleJoin(client, msg)

	case websocket.TypeRoomLeave:
		h.hub.LeaveRoom(client, msg.RoomID)
		return nil

	case websocket.TypeMessage:
		return h.handleTextMessage(client, msg)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return nil
	}
}

// handleJoin пускает в комнату только автора курса и записанных студентов
func (h *MessageHandler) handleJoin(client *websocket.Client, msg *websocket.Message) error {
	if _, err := uuid.Parse(msg.RoomID); err != nil {
		return websocket.ErrRoomNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	ok, err := h.db.CanAccessCourse(ctx, client.UserID.String(), msg.RoomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return websocket.ErrRoomNotFound
		}
		return err
	}
	if !ok {
		return websocket.ErrUnauthorized
	}

	h.hub.JoinRoom(client, msg.RoomID)
	return nil
}

func (h *MessageHandler) handleTextMessage(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == "" {
		return websocket.ErrInvalidMessage
	}

	if !client.IsInRoom(msg.RoomID) {
		return websocket.ErrUserNotInRoom
	}

	var payload websocket.MessagePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return websocket.ErrInvalidMessage
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return websocket.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return websocket.ErrMessageTooLong
	}

	courseID, err := uuid.Parse(msg.RoomID)
	if err != nil {
		return websocket.ErrRoomNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	message := &models.Message{
		CourseID:  courseID,
		UserID:    client.UserID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := h.db.SaveMessage(ctx, message); err != nil {
		log.Printf("Failed to save message: %v", err)
		return err
	}

	user, err := h.db.GetUser(ctx, client.UserID.String())
	if err != nil {
		log.Printf("Failed to get user info: %v", err)
		return err
	}
	message.User = *user

	wsMsg, err := websocket.NewMessage(websocket.TypeMessage, msg.RoomID, formatMessageResponse(*message))
	if err != nil {
		return err
	}
	wsMsg.UserID = client.UserID.String()

	msgData, err := json.Marshal(wsMsg)
	if err != nil {
		return err
	}

	// эхо уходит всем в комнате, включая отправителя
	h.hub.SendToRoom(msg.RoomID, msgData)

	h.notifyMembers(ctx, message, user.Name)

	if err := h.db.UpdateLastSeen(ctx, client.UserID.String()); err != nil {
		log.Printf("Failed to update last seen: %v", err)
	}

	return nil
}

// notifyMembers создаёт new_message уведомления всем участникам курса кроме отправителя
func (h *MessageHandler) notifyMembers(ctx context.Context, message *models.Message, senderName string) {
	members, err := h.db.CourseMemberIDs(ctx, message.CourseID.String())
	if err != nil {
		log.Printf("Failed to load course members: %v", err)
		return
	}

	text := fmt.Sprintf("%s: %s", senderName, preview(message.Content))
	courseID := message.CourseID

	notifications := make([]models.Notification, 0, len(members))
	for _, id := range members {
		if id == message.UserID {
			continue
		}
		notifications = append(notifications, models.Notification{
			UserID:   id,
			Message:  text,
			Type:     models.NotificationNewMessage,
			CourseID: &courseID,
		})
	}

	if err := h.db.CreateNotifications(ctx, notifications); err != nil {
		log.Printf("Failed to create notifications: %v", err)
	}
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	r := []rune(s)
	return string(r[:previewLength]) + "..."
}
