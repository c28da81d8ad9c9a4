// Package courseview связывает открытый курс с его чатом, realtime-подключением
// и уведомлениями пользователя.
//
// Каждый Mount получает собственный ULID-тег и контекст. Ответы, пришедшие после
// смены курса или Unmount, отбрасываются с ErrSuperseded и не трогают состояние
// нового курса.
package courseview

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/thereayou/coursechat/internal/apiclient"
	"github.com/thereayou/coursechat/internal/chat"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/notice"
	"github.com/thereayou/coursechat/internal/notifications"
	"github.com/thereayou/coursechat/internal/realtime"
)

var (
	ErrInvalidCourse = errors.New("course id is empty")
	ErrSuperseded    = errors.New("course view was remounted or torn down")
	ErrNotReady      = errors.New("course view is not ready")
	ErrReadOnly      = errors.New("chat is read-only until the connection is restored")
	ErrNotOwner      = errors.New("only the course tutor can change videos")
	ErrVideoNotFound = errors.New("video not found")
)

type Config struct {
	Backend   Backend
	Connector Connector
	Identity  Identity
	Notifier  notice.Notifier

	// Dedup включает отбрасывание повторно доставленных сообщений по id
	Dedup bool

	// Наблюдатели view. Вызываются из горутины realtime; обращаться к Binder из них можно,
	// вызывать Mount/Unmount нельзя.
	OnMessage    func(chat.Message)
	OnConnection func(realtime.State)
}

// mount - всё, что принадлежит одному открытию курса
type mount struct {
	tag      ulid.ULID
	courseID string
	ctx      context.Context
	cancel   context.CancelFunc
	stream   *chat.Stream

	mu   sync.Mutex
	room Room
}

func (m *mount) currentRoom() Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

func (m *mount) swapRoom(r Room) Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.room
	m.room = r
	return prev
}

// bind ограничивает ctx временем жизни mount
func (m *mount) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

type Binder struct {
	cfg Config

	// roomMu сериализует открытие и закрытие комнаты. Обработчики realtime его не берут,
	// Close комнаты ждёт завершения обработчика.
	roomMu sync.Mutex

	mu       sync.RWMutex
	state    State
	current  *mount
	lastID   string
	course   *dto.CourseResponse
	selected string
	err      error
}

func New(cfg Config) *Binder {
	if cfg.Notifier == nil {
		cfg.Notifier = notice.Log{}
	}
	return &Binder{cfg: cfg, state: Idle}
}

// Mount открывает курс: закрывает предыдущий, параллельно грузит курс и историю чата,
// затем открывает комнату. Ready не ждёт установки соединения.
func (b *Binder) Mount(ctx context.Context, courseID string) error {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return ErrInvalidCourse
	}

	mctx, cancel := context.WithCancel(ctx)
	m := &mount{
		tag:      ulid.Make(),
		courseID: courseID,
		ctx:      mctx,
		cancel:   cancel,
		stream:   b.newStream(),
	}

	b.mu.Lock()
	prev := b.current
	b.current = m
	b.lastID = courseID
	b.state = Loading
	b.course = nil
	b.selected = ""
	b.err = nil
	b.mu.Unlock()

	b.teardown(prev)
	return b.load(m)
}

// Unmount закрывает комнату без условий и отбрасывает состояние курса
func (b *Binder) Unmount() {
	b.mu.Lock()
	m := b.current
	b.current = nil
	b.state = TornDown
	b.course = nil
	b.selected = ""
	b.mu.Unlock()

	b.teardown(m)
}

// Retry повторно открывает последний курс, например после Error или обрыва соединения
func (b *Binder) Retry(ctx context.Context) error {
	b.mu.RLock()
	id := b.lastID
	b.mu.RUnlock()

	if id == "" {
		return ErrNotReady
	}
	return b.Mount(ctx, id)
}

// Refresh перечитывает курс. Ошибка переводит view в Error и закрывает комнату.
func (b *Binder) Refresh(ctx context.Context) error {
	m, err := b.ready()
	if err != nil {
		return err
	}

	ctx, done := m.bind(ctx)
	defer done()
	course, err := b.cfg.Backend.GetCourse(ctx, m.courseID)

	b.mu.Lock()
	if b.current != m {
		b.mu.Unlock()
		b.discard(m)
		return ErrSuperseded
	}
	if err != nil {
		b.state = Error
		b.err = err
		b.mu.Unlock()

		b.closeRoom(m)
		b.notifyLoad(err)
		return err
	}
	b.course = course
	if _, ok := findVideo(course, b.selected); !ok {
		b.selected = firstVideo(course)
	}
	b.mu.Unlock()
	return nil
}

func (b *Binder) load(m *mount) error {
	course, history, err := b.fetch(m)

	b.mu.Lock()
	if b.current != m {
		b.mu.Unlock()
		b.discard(m)
		return ErrSuperseded
	}
	if err != nil {
		b.state = Error
		b.err = err
		b.mu.Unlock()

		b.notifyLoad(err)
		return err
	}
	m.stream.Initialize(chat.FromDTOs(history))
	b.course = course
	b.selected = firstVideo(course)
	b.mu.Unlock()

	return b.open(m)
}

func (b *Binder) open(m *mount) error {
	err := b.openRoom(m)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		b.cfg.Notifier.Notify(notice.Error("Failed to connect to chat", err.Error()))
	}
	return err
}

func (b *Binder) openRoom(m *mount) error {
	b.roomMu.Lock()
	defer b.roomMu.Unlock()

	if !b.isCurrent(m) {
		b.discard(m)
		return ErrSuperseded
	}

	room, err := b.cfg.Connector.Open(m.ctx, m.courseID, b.cfg.Identity.Credentials(), b.handlers(m))
	if err != nil {
		b.mu.Lock()
		if b.current == m {
			b.state = Error
			b.err = err
		}
		b.mu.Unlock()
		return err
	}
	m.swapRoom(room)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != m {
		// teardown этого mount ждёт roomMu и закроет комнату
		return ErrSuperseded
	}
	b.state = Ready
	return nil
}

func (b *Binder) handlers(m *mount) realtime.Handlers {
	return realtime.Handlers{
		OnMessage: func(r dto.MessageResponse) {
			msg := chat.FromDTO(r)
			if m.stream.AppendIncoming(msg) && b.cfg.OnMessage != nil {
				b.cfg.OnMessage(msg)
			}
		},
		OnState: func(s realtime.State) {
			if b.cfg.OnConnection != nil {
				b.cfg.OnConnection(s)
			}
		},
		OnError: func(err error) {
			b.cfg.Notifier.Notify(notice.Error("Chat connection error", err.Error()))
		},
		OnFailed: func(error) {
			b.cfg.Notifier.Notify(notice.Error("Connection failed", "Chat is read-only. Reopen the course to reconnect."))
		},
	}
}

func (b *Binder) teardown(m *mount) {
	if m == nil {
		return
	}
	m.cancel()
	b.closeRoom(m)
}

func (b *Binder) closeRoom(m *mount) {
	b.roomMu.Lock()
	defer b.roomMu.Unlock()

	if room := m.swapRoom(nil); room != nil {
		b.cfg.Connector.Close(room)
	}
}

func (b *Binder) isCurrent(m *mount) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current == m
}

func (b *Binder) ready() (*mount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.current == nil || b.state != Ready {
		return nil, ErrNotReady
	}
	return b.current, nil
}

func (b *Binder) discard(m *mount) {
	log.Printf("Discarding stale response for course %s (mount %s)", m.courseID, m.tag)
}

func (b *Binder) notifyLoad(err error) {
	if apiclient.IsCanceled(err) {
		return
	}
	b.cfg.Notifier.Notify(notice.Error("Failed to load course", apiclient.UserMessage(err)))
}

func (b *Binder) newStream() *chat.Stream {
	if b.cfg.Dedup {
		return chat.NewStream(chat.WithDedup())
	}
	return chat.NewStream()
}

// Accessors

func (b *Binder) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Err - последняя ошибка загрузки, пока view в состоянии Error
func (b *Binder) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != Error {
		return nil
	}
	return b.err
}

func (b *Binder) CourseID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return ""
	}
	return b.current.courseID
}

// Tag - ULID текущего mount, пустой если курс не открыт
func (b *Binder) Tag() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return ""
	}
	return b.current.tag.String()
}

func (b *Binder) Course() (dto.CourseResponse, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.course == nil {
		return dto.CourseResponse{}, false
	}
	c := *b.course
	c.Videos = append([]dto.VideoResponse(nil), b.course.Videos...)
	return c, true
}

func (b *Binder) Messages() []chat.Message {
	b.mu.RLock()
	m := b.current
	b.mu.RUnlock()

	if m == nil {
		return nil
	}
	return m.stream.Messages()
}

func (b *Binder) ConnectionState() realtime.State {
	b.mu.RLock()
	m := b.current
	b.mu.RUnlock()

	if m == nil {
		return realtime.Disconnected
	}
	room := m.currentRoom()
	if room == nil {
		return realtime.Disconnected
	}
	return room.State()
}

// JoinedRoom - сервер подтвердил вход в комнату на текущем соединении
func (b *Binder) JoinedRoom() bool {
	b.mu.RLock()
	m := b.current
	b.mu.RUnlock()

	if m == nil {
		return false
	}
	room := m.currentRoom()
	return room != nil && room.JoinedRoom()
}

// SendMessage отправляет текст в чат курса. Пустой текст отклоняется до сети.
// Сообщение появится в Messages только из серверного эха.
func (b *Binder) SendMessage(body string) error {
	m, err := b.ready()
	if err != nil {
		return err
	}

	d := chat.Draft{Body: body, SenderID: b.cfg.Identity.Credentials().UserID, RoomID: m.courseID}
	if _, err := chat.ValidateDraft(d); err != nil {
		return err
	}

	room := m.currentRoom()
	if room == nil || room.State() != realtime.Connected {
		return ErrReadOnly
	}

	if err := m.stream.AppendOutgoing(room, d); err != nil {
		b.cfg.Notifier.Notify(notice.Error("Failed to send message", err.Error()))
		return err
	}
	return nil
}

// Notifications

func (b *Binder) Notifications() []notifications.Notification {
	return b.cfg.Identity.Notifications().Notifications()
}

func (b *Binder) UnreadCount() int {
	return b.cfg.Identity.Notifications().UnreadCount()
}

func (b *Binder) MarkRead(ctx context.Context, id string) error {
	if err := b.cfg.Identity.Notifications().MarkRead(ctx, id); err != nil {
		b.cfg.Notifier.Notify(notice.Error("Failed to mark notification as read", err.Error()))
		return err
	}
	return nil
}

func (b *Binder) MarkAllRead(ctx context.Context) error {
	if err := b.cfg.Identity.Notifications().MarkAllRead(ctx); err != nil {
		b.cfg.Notifier.Notify(notice.Error("Failed to mark notifications as read", err.Error()))
		return err
	}
	return nil
}
