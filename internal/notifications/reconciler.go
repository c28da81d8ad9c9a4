// Package notifications держит список уведомлений пользователя и счётчик непрочитанных
// в согласии с сервером.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thereayou/coursechat/internal/handlers/dto"
)

const (
	TypeGeneric    = "generic"
	TypeNewMessage = "new_message"
)

type Notification struct {
	ID              string
	Message         string
	Read            bool
	Type            string
	RelatedCourseID string
	CreatedAt       time.Time
}

// Target - куда ведёт клик по уведомлению
func (n Notification) Target() string {
	switch {
	case n.RelatedCourseID == "":
		return "/notifications"
	case n.Type == TypeNewMessage:
		return "/course/" + n.RelatedCourseID + "#chat"
	default:
		return "/course/" + n.RelatedCourseID
	}
}

func fromDTO(r dto.NotificationResponse) Notification {
	return Notification{
		ID:              r.ID,
		Message:         r.Message,
		Read:            r.Read,
		Type:            r.Type,
		RelatedCourseID: r.CourseID,
		CreatedAt:       r.CreatedAt,
	}
}

// API - удалённый сервис уведомлений
type API interface {
	ListNotifications(ctx context.Context) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) ([]dto.NotificationResponse, error)
}

// Reconciler меняет локальное состояние только после ответа сервера.
// Полная замена списка (RefreshAll, MarkAllRead) увеличивает epoch; ответ MarkRead,
// выданный до замены, после неё не применяется.
type Reconciler struct {
	api API

	mu     sync.RWMutex
	items  []Notification
	unread int
	epoch  uint64
}

func NewReconciler(api API) *Reconciler {
	return &Reconciler{api: api}
}

// RefreshAll заменяет список целиком и пересчитывает счётчик по нему
func (r *Reconciler) RefreshAll(ctx context.Context) ([]Notification, error) {
	list, err := r.api.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}

	items := make([]Notification, 0, len(list))
	unread := 0
	for _, n := range list {
		items = append(items, fromDTO(n))
		if !n.Read {
			unread++
		}
	}

	r.mu.Lock()
	r.items = items
	r.unread = unread
	r.epoch++
	r.mu.Unlock()

	return r.Notifications(), nil
}

// RefreshUnreadCount берёт счётчик с сервера независимо от RefreshAll
func (r *Reconciler) RefreshUnreadCount(ctx context.Context) (int, error) {
	count, err := r.api.UnreadCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unread count: %w", err)
	}
	if count < 0 {
		count = 0
	}

	r.mu.Lock()
	r.unread = count
	r.mu.Unlock()

	return count, nil
}

// MarkRead помечает уведомление прочитанным после подтверждения сервера.
// Счётчик уменьшается ровно на один и только если уведомление было непрочитанным.
func (r *Reconciler) MarkRead(ctx context.Context, id string) error {
	r.mu.RLock()
	issued := r.epoch
	r.mu.RUnlock()

	if err := r.api.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.epoch != issued {
		return nil
	}

	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if !r.items[i].Read {
			r.items[i].Read = true
			if r.unread > 0 {
				r.unread--
			}
		}
		break
	}
	return nil
}

// MarkAllRead заменяет список ответом сервера; счётчик считается по нему же
// и равен нулю, если сервер вернул всё прочитанным
func (r *Reconciler) MarkAllRead(ctx context.Context) error {
	list, err := r.api.MarkAllNotificationsRead(ctx)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	items := make([]Notification, 0, len(list))
	unread := 0
	for _, n := range list {
		items = append(items, fromDTO(n))
		if !n.Read {
			unread++
		}
	}

	r.mu.Lock()
	r.items = items
	r.unread = unread
	r.epoch++
	r.mu.Unlock()

	return nil
}

func (r *Reconciler) Notifications() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Reconciler) UnreadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unread
}

// Reset очищает состояние при выходе из аккаунта
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.items = nil
	r.unread = 0
	r.epoch++
	r.mu.Unlock()
}
