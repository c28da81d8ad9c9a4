package chat

import (
	"time"

	"github.com/thereayou/coursechat/internal/handlers/dto"
)

const UnknownSender = "Unknown"

// Message - сообщение чата курса в порядке прихода
type Message struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Body       string
	CreatedAt  time.Time
}

// DisplayName возвращает имя отправителя или "Unknown"
func (m Message) DisplayName() string {
	if m.SenderName == "" {
		return UnknownSender
	}
	return m.SenderName
}

func FromDTO(r dto.MessageResponse) Message {
	sender := r.UserID
	if sender == "" {
		sender = r.User.ID
	}
	return Message{
		ID:         r.ID,
		RoomID:     r.RoomID,
		SenderID:   sender,
		SenderName: r.User.Name,
		Body:       r.Content,
		CreatedAt:  r.CreatedAt,
	}
}

func FromDTOs(rs []dto.MessageResponse) []Message {
	out := make([]Message, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromDTO(r))
	}
	return out
}
