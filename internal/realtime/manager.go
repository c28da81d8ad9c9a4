// Package realtime держит websocket-подключение клиента к комнате курса:
// переподключение с ограниченным числом попыток, повторный join после каждого
// подключения и гарантию, что после Close обработчики больше не вызываются.
package realtime

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultWriteTimeout      = 10 * time.Second
)

type Options struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	WriteTimeout      time.Duration
	Transport         Transport
}

// Manager держит не больше одной активной сессии
type Manager struct {
	opts Options

	mu     sync.Mutex
	active *Session
}

func NewManager(opts Options) *Manager {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Transport == nil {
		opts.Transport = WebSocketTransport{}
	}
	return &Manager{opts: opts}
}

// Open подключается к комнате roomID. Предыдущая сессия закрывается до старта новой.
// ctx ограничивает время жизни сессии.
func (m *Manager) Open(ctx context.Context, roomID string, creds Credentials, h Handlers) (*Session, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, ErrInvalidRoom
	}
	if creds.Token == "" {
		return nil, ErrMissingCredentials
	}

	m.mu.Lock()
	prev := m.active
	m.active = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	s := newSession(ctx, roomID, creds, m.opts, h)

	m.mu.Lock()
	m.active = s
	m.mu.Unlock()

	go s.run()
	return s, nil
}

// Close закрывает сессию и снимает её с учёта, если она активна
func (m *Manager) Close(s *Session) {
	if s == nil {
		return
	}
	s.Close()

	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()
}

func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
