package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

const MaxBodyLength = 5000

var (
	ErrEmptyBody     = errors.New("message body is empty")
	ErrBodyTooLong   = fmt.Errorf("message body exceeds %d characters", MaxBodyLength)
	ErrMissingRoom   = errors.New("message has no room")
	ErrMissingSender = errors.New("message has no sender")
)

// Sender передаёт сообщение на сервер. Локально сообщение не добавляется:
// оно появится в потоке только из серверного эха.
type Sender interface {
	Send(roomID, senderID, body string) error
}

// SenderFunc позволяет использовать функцию как Sender
type SenderFunc func(roomID, senderID, body string) error

func (f SenderFunc) Send(roomID, senderID, body string) error { return f(roomID, senderID, body) }

type Draft struct {
	Body     string
	SenderID string
	RoomID   string
}

// Stream хранит сообщения активной комнаты только на добавление, в порядке прихода
type Stream struct {
	mu       sync.RWMutex
	messages []Message
	dedup    bool
	seen     map[string]struct{}
}

type Option func(*Stream)

// WithDedup отбрасывает входящие сообщения с уже виденным id
func WithDedup() Option {
	return func(s *Stream) { s.dedup = true }
}

func NewStream(opts ...Option) *Stream {
	s := &Stream{}
	for _, opt := range opts {
		opt(s)
	}
	if s.dedup {
		s.seen = make(map[string]struct{})
	}
	return s
}

// Initialize заменяет поток снимком истории в порядке сервера
func (s *Stream) Initialize(history []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]Message, 0, len(history))
	if s.dedup {
		s.seen = make(map[string]struct{}, len(history))
	}
	for _, m := range history {
		s.appendLocked(m)
	}
}

// AppendIncoming добавляет сообщение в конец. false - отброшено как дубль (только с WithDedup).
func (s *Stream) AppendIncoming(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(m)
}

func (s *Stream) appendLocked(m Message) bool {
	if s.dedup && m.ID != "" {
		if _, ok := s.seen[m.ID]; ok {
			return false
		}
		s.seen[m.ID] = struct{}{}
	}
	s.messages = append(s.messages, m)
	return true
}

// AppendOutgoing проверяет черновик и отправляет его. Поток не меняется.
func (s *Stream) AppendOutgoing(sender Sender, d Draft) error {
	body, err := ValidateDraft(d)
	if err != nil {
		return err
	}
	return sender.Send(d.RoomID, d.SenderID, body)
}

// ValidateDraft возвращает обрезанный текст или ошибку валидации
func ValidateDraft(d Draft) (string, error) {
	body := strings.TrimSpace(d.Body)
	switch {
	case body == "":
		return "", ErrEmptyBody
	case utf8.RuneCountInString(body) > MaxBodyLength:
		return "", ErrBodyTooLong
	case d.RoomID == "":
		return "", ErrMissingRoom
	case d.SenderID == "":
		return "", ErrMissingSender
	}
	return body, nil
}

// Messages возвращает копию потока
func (s *Stream) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
