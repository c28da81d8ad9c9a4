package websocket

import (
	"encoding/json"
	"time"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// Системные типы
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// Чат
	TypeMessage MessageType = "message"

	// Комнаты
	TypeRoomJoin   MessageType = "room_join"
	TypeRoomJoined MessageType = "room_joined"
	TypeRoomLeave  MessageType = "room_leave"
)

// Message - конверт, которым обмениваются сервер и клиент. RoomID равен ID курса.
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MessagePayload - data входящего сообщения чата
type MessagePayload struct {
	Content string `json:"content"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessage собирает конверт, data сериализуется если не nil
func NewMessage(msgType MessageType, roomID string, data interface{}) (Message, error) {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Message{}, err
		}
		msg.Data = raw
	}
	return msg, nil
}
