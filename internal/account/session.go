// Package account - явный контекст авторизованного пользователя.
// Session создаётся при входе, передаётся в курс-вью и разрушается при выходе
// или на первом 401 от сервера.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thereayou/coursechat/internal/apiclient"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/notice"
	"github.com/thereayou/coursechat/internal/notifications"
	"github.com/thereayou/coursechat/internal/realtime"
	"github.com/thereayou/coursechat/pkg/auth"
)

var ErrNoToken = errors.New("server returned no token")

type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type Session struct {
	User User

	token     string
	expiresAt time.Time
	api       *apiclient.Client
	notifs    *notifications.Reconciler
	notifier  notice.Notifier

	mu       sync.Mutex
	closed   bool
	onLogout []func()
}

// Login входит по email/паролю. base - клиент без токена.
func Login(ctx context.Context, base *apiclient.Client, email, password string, n notice.Notifier) (*Session, error) {
	resp, err := base.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return newSession(base, resp, n)
}

func Signup(ctx context.Context, base *apiclient.Client, req dto.SignupRequest, n notice.Notifier) (*Session, error) {
	resp, err := base.Signup(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return newSession(base, resp, n)
}

func newSession(base *apiclient.Client, resp *dto.AuthResponse, n notice.Notifier) (*Session, error) {
	if resp.Token == "" {
		return nil, ErrNoToken
	}
	if n == nil {
		n = notice.Log{}
	}

	s := &Session{
		User: User{
			ID:    resp.User.ID,
			Name:  resp.User.Name,
			Email: resp.User.Email,
			Role:  resp.User.Role,
		},
		token:    resp.Token,
		notifier: n,
	}
	if exp, err := auth.PeekExpiry(resp.Token); err == nil {
		s.expiresAt = exp
	}

	s.api = base.WithToken(resp.Token, s.expire)
	s.notifs = notifications.NewReconciler(s.api)
	return s, nil
}

func (s *Session) Token() string { return s.token }

// ExpiresAt - момент истечения токена; нулевое время, если в токене нет exp
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// API - клиент с токеном этой сессии
func (s *Session) API() *apiclient.Client { return s.api }

func (s *Session) Notifications() *notifications.Reconciler { return s.notifs }

func (s *Session) Notifier() notice.Notifier { return s.notifier }

func (s *Session) Credentials() realtime.Credentials {
	return realtime.Credentials{Token: s.token, UserID: s.User.ID}
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// OnLogout регистрирует действие при разрушении сессии (выход или истёкший токен)
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// SyncNotifications загружает список и счётчик параллельно. Запросы независимы:
// ошибка одного не отменяет другой, каждая ошибка уходит в notice.
func (s *Session) SyncNotifications(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		if _, err := s.notifs.RefreshAll(ctx); err != nil {
			s.notifier.Notify(notice.Error("Failed to load notifications", err.Error()))
			return err
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.notifs.RefreshUnreadCount(ctx); err != nil {
			s.notifier.Notify(notice.Error("Failed to load unread count", err.Error()))
			return err
		}
		return nil
	})

	return g.Wait()
}

// Logout отзывает токен на сервере и разрушает сессию. Локальное состояние
// очищается даже если сервер ответил ошибкой.
func (s *Session) Logout(ctx context.Context) error {
	if !s.teardown() {
		return nil
	}
	if err := s.api.Logout(ctx); err != nil && apiclient.KindOf(err) != apiclient.KindUnauthorized {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Session) expire() {
	if s.teardown() {
		s.notifier.Notify(notice.Error("Session expired", "Please log in again."))
	}
}

func (s *Session) teardown() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	hooks := s.onLogout
	s.onLogout = nil
	s.mu.Unlock()

	s.notifs.Reset()
	for _, fn := range hooks {
		fn()
	}
	return true
}
