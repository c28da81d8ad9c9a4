package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thereayou/coursechat/internal/handlers/dto"
	ws "github.com/thereayou/coursechat/internal/websocket"
)

type Credentials struct {
	Token  string
	UserID string
}

// Handlers получает события сессии. Вызовы сериализованы и прекращаются
// до возврата из Close. Вызывать Close из обработчика нельзя.
type Handlers struct {
	OnMessage func(dto.MessageResponse)
	OnJoined  func(roomID string)
	OnState   func(State)
	OnError   func(error)
	// OnFailed - попытки переподключения исчерпаны, сессия окончательно закрыта
	OnFailed func(error)
}

// Session - подключение к одной комнате курса
type Session struct {
	roomID string
	creds  Credentials
	opts   Options
	h      Handlers

	machine *machine
	joined  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	connMu  sync.Mutex
	conn    Conn
	writeMu sync.Mutex

	dispatchMu sync.Mutex
	closed     bool
	closeOnce  sync.Once
}

func newSession(parent context.Context, roomID string, creds Credentials, opts Options, h Handlers) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		roomID:  roomID,
		creds:   creds,
		opts:    opts,
		h:       h,
		machine: newMachine(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	// каждое вхождение в Connected - новое соединение, комнату нужно подтвердить заново
	s.machine.OnEnter(Connected, func(State) { s.join() })
	for _, st := range []State{Disconnected, Connecting, Connected, Reconnecting} {
		st := st
		s.machine.OnEnter(st, func(State) {
			s.dispatch(func() {
				if s.h.OnState != nil {
					s.h.OnState(st)
				}
			})
		})
	}
	return s
}

func (s *Session) RoomID() string { return s.roomID }

func (s *Session) State() State { return s.machine.Current() }

// JoinedRoom - сервер подтвердил вход в комнату на текущем соединении
func (s *Session) JoinedRoom() bool { return s.joined.Load() }

// Send отправляет сообщение в комнату. Эхо придёт через OnMessage.
func (s *Session) Send(roomID, senderID, body string) error {
	if roomID != s.roomID {
		return ErrWrongRoom
	}
	if s.State() != Connected {
		return ErrNotConnected
	}
	if !s.joined.Load() {
		return ErrNotJoined
	}

	msg, err := ws.NewMessage(ws.TypeMessage, roomID, ws.MessagePayload{Content: body})
	if err != nil {
		return err
	}
	msg.UserID = senderID
	return s.write(msg)
}

// Close останавливает сессию и ждёт завершения фоновой горутины.
// После возврата ни один обработчик не будет вызван. Повторный вызов безопасен.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.dispatchMu.Lock()
		s.closed = true
		s.dispatchMu.Unlock()

		s.cancel()
	})
	<-s.done
}

// Done закрывается, когда сессия завершилась (Close, отмена ctx или исчерпание попыток)
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run() {
	defer close(s.done)
	defer s.machine.To(Disconnected)

	// отмена ctx (Close или родитель) прерывает блокирующее чтение
	stop := context.AfterFunc(s.ctx, s.closeConn)
	defer stop()

	s.machine.To(Connecting)

	attempt := 0
	for {
		if attempt > 0 {
			s.machine.To(Reconnecting)
			if !s.sleep(s.opts.ReconnectDelay) {
				return
			}
		}

		conn, err := s.opts.Transport.Dial(s.ctx, s.opts.URL, s.header())
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.reportError(fmt.Errorf("connect to room %s: %w", s.roomID, err))

			if errors.Is(err, ErrUnauthorized) || attempt >= s.opts.ReconnectAttempts {
				s.fail(fmt.Errorf("%w after %d attempts: %v", ErrConnectionFailed, attempt+1, err))
				return
			}
			attempt++
			continue
		}

		if !s.setConn(conn) {
			return
		}
		attempt = 0
		s.machine.To(Connected)

		err = s.readLoop(conn)
		s.joined.Store(false)
		s.clearConn(conn)
		if s.ctx.Err() != nil {
			return
		}

		log.Printf("Realtime connection to room %s lost: %v", s.roomID, err)
		s.reportError(fmt.Errorf("connection to room %s lost: %w", s.roomID, err))
		attempt = 1
	}
}

func (s *Session) readLoop(conn Conn) error {
	for {
		var env ws.Message
		if err := conn.ReadJSON(&env); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reportError(fmt.Errorf("%w: %v", ErrBadFrame, err))
				continue
			}
			return err
		}

		switch env.Type {
		case ws.TypeMessage:
			if env.RoomID != s.roomID {
				continue
			}
			var m dto.MessageResponse
			if err := json.Unmarshal(env.Data, &m); err != nil {
				s.reportError(fmt.Errorf("%w: %v", ErrBadFrame, err))
				continue
			}
			if m.RoomID == "" {
				m.RoomID = env.RoomID
			}
			s.dispatch(func() {
				if s.h.OnMessage != nil {
					s.h.OnMessage(m)
				}
			})

		case ws.TypeRoomJoined:
			if env.RoomID != s.roomID {
				continue
			}
			s.joined.Store(true)
			s.dispatch(func() {
				if s.h.OnJoined != nil {
					s.h.OnJoined(env.RoomID)
				}
			})

		case ws.TypeError:
			var p ws.ErrorPayload
			if len(env.Data) > 0 {
				_ = json.Unmarshal(env.Data, &p)
			}
			s.reportError(&ServerError{RoomID: env.RoomID, Message: p.Error})

		case ws.TypePing:
			if err := s.write(ws.Message{Type: ws.TypePong, Timestamp: time.Now()}); err != nil {
				return err
			}
		}
	}
}

func (s *Session) join() {
	msg := ws.Message{Type: ws.TypeRoomJoin, RoomID: s.roomID, Timestamp: time.Now()}
	if err := s.write(msg); err != nil {
		// чтение упадёт на том же соединении и запустит переподключение
		s.reportError(fmt.Errorf("join room %s: %w", s.roomID, err))
	}
}

func (s *Session) write(v interface{}) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// setConn публикует соединение. false - сессия уже закрывается, соединение закрыто здесь.
func (s *Session) setConn(conn Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.ctx.Err() != nil {
		conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *Session) closeConn() {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *Session) clearConn(conn Conn) {
	s.connMu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.connMu.Unlock()
	conn.Close()
}

func (s *Session) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.creds.Token)
	return h
}

func (s *Session) dispatch(fn func()) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if s.closed {
		return
	}
	fn()
}

func (s *Session) reportError(err error) {
	s.dispatch(func() {
		if s.h.OnError != nil {
			s.h.OnError(err)
		}
	})
}

func (s *Session) fail(err error) {
	log.Printf("Realtime session for room %s failed: %v", s.roomID, err)
	s.machine.To(Disconnected)
	s.dispatch(func() {
		if s.h.OnFailed != nil {
			s.h.OnFailed(err)
		}
	})
}
