package courseview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/coursechat/internal/apiclient"
	"github.com/thereayou/coursechat/internal/chat"
	"github.com/thereayou/coursechat/internal/handlers/dto"
	"github.com/thereayou/coursechat/internal/notice"
	"github.com/thereayou/coursechat/internal/notifications"
	"github.com/thereayou/coursechat/internal/realtime"
)

const self = "u1"

type fakeBackend struct {
	mu         sync.Mutex
	courses    map[string]dto.CourseResponse
	history    map[string][]dto.MessageResponse
	courseErr  map[string]error
	gates      map[string]chan struct{}
	hit        chan string
	transcript string
	deleted    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		courses:   make(map[string]dto.CourseResponse),
		history:   make(map[string][]dto.MessageResponse),
		courseErr: make(map[string]error),
		gates:     make(map[string]chan struct{}),
		hit:       make(chan string, 4),
	}
}

func (f *fakeBackend) add(id, tutor string, videos ...dto.VideoResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.courses[id] = dto.CourseResponse{ID: id, Title: "Course " + id, Tutor: dto.UserInfo{ID: tutor}, Videos: videos}
	f.history[id] = []dto.MessageResponse{
		{ID: id + "-h1", RoomID: id, UserID: "u2", Content: "first in " + id, User: dto.UserInfo{Name: "Bob"}},
		{ID: id + "-h2", RoomID: id, UserID: "u3", Content: "second in " + id},
	}
}

func (f *fakeBackend) setCourseErr(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courseErr[id] = err
}

func (f *fakeBackend) GetCourse(_ context.Context, id string) (*dto.CourseResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.courseErr[id]; err != nil {
		return nil, err
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, &apiclient.Error{Kind: apiclient.KindNotFound, Status: 404, Message: "course not found"}
	}
	c.Videos = append([]dto.VideoResponse(nil), c.Videos...)
	return &c, nil
}

func (f *fakeBackend) ChatHistory(_ context.Context, id string) ([]dto.MessageResponse, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()

	// ctx намеренно игнорируется: ответ приходит поздно, как у медленного сервера
	if gate != nil {
		f.hit <- id
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.MessageResponse(nil), f.history[id]...), nil
}

func (f *fakeBackend) GenerateTranscript(_ context.Context, _, videoID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcript == "" {
		return "", errors.New("transcription failed")
	}
	return f.transcript + " " + videoID, nil
}

func (f *fakeBackend) DeleteVideo(_ context.Context, _, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, videoID)
	return nil
}

type fakeRoom struct {
	roomID string
	h      realtime.Handlers

	mu      sync.Mutex
	state   realtime.State
	sent    []string
	sendErr error
	closed  bool
}

func (r *fakeRoom) Send(roomID, senderID, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, fmt.Sprintf("%s|%s|%s", roomID, senderID, body))
	return nil
}

func (r *fakeRoom) State() realtime.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRoom) JoinedRoom() bool { return r.State() == realtime.Connected }

func (r *fakeRoom) setState(s realtime.State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *fakeRoom) sentBodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func (r *fakeRoom) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// deliver - серверное событие; после Close не доходит, как у realtime.Session
func (r *fakeRoom) deliver(m dto.MessageResponse) {
	if r.isClosed() {
		return
	}
	r.h.OnMessage(m)
}

type fakeConnector struct {
	mu      sync.Mutex
	rooms   []*fakeRoom
	events  []string
	openErr error
}

func (c *fakeConnector) Open(_ context.Context, roomID string, creds realtime.Credentials, h realtime.Handlers) (Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openErr != nil {
		return nil, c.openErr
	}
	if creds.Token == "" {
		return nil, realtime.ErrMissingCredentials
	}
	r := &fakeRoom{roomID: roomID, h: h, state: realtime.Connected}
	c.rooms = append(c.rooms, r)
	c.events = append(c.events, "open "+roomID)
	return r, nil
}

func (c *fakeConnector) Close(room Room) {
	r := room.(*fakeRoom)
	r.mu.Lock()
	r.closed = true
	r.state = realtime.Disconnected
	r.mu.Unlock()

	c.mu.Lock()
	c.events = append(c.events, "close "+r.roomID)
	c.mu.Unlock()
}

func (c *fakeConnector) opened() []*fakeRoom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeRoom(nil), c.rooms...)
}

func (c *fakeConnector) log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

type fakeNotifications struct {
	mu       sync.Mutex
	items    []dto.NotificationResponse
	markFail error
}

func (f *fakeNotifications) ListNotifications(context.Context) ([]dto.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.NotificationResponse(nil), f.items...), nil
}

func (f *fakeNotifications) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if !it.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkNotificationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markFail != nil {
		return f.markFail
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotifications) MarkAllNotificationsRead(context.Context) ([]dto.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		f.items[i].Read = true
	}
	return append([]dto.NotificationResponse(nil), f.items...), nil
}

type fakeIdentity struct {
	notifs *notifications.Reconciler
}

func (fakeIdentity) Credentials() realtime.Credentials {
	return realtime.Credentials{Token: "tok", UserID: self}
}

func (i fakeIdentity) Notifications() *notifications.Reconciler { return i.notifs }

type harness struct {
	binder  *Binder
	backend *fakeBackend
	conn    *fakeConnector
	notifs  *fakeNotifications
	board   *notice.Board

	mu       sync.Mutex
	observed []chat.Message
}

func newHarness(t *testing.T, dedup bool) *harness {
	t.Helper()

	h := &harness{
		backend: newFakeBackend(),
		conn:    &fakeConnector{},
		notifs:  &fakeNotifications{},
		board:   &notice.Board{},
	}
	h.backend.add("c1", self,
		dto.VideoResponse{ID: "v1", Title: "Intro to Go", Position: 0},
		dto.VideoResponse{ID: "v2", Title: "Channels", Position: 1, Transcript: "the select statement waits"},
	)
	h.backend.add("c2", "tutor-2", dto.VideoResponse{ID: "v3", Title: "Generics"})

	h.binder = New(Config{
		Backend:   h.backend,
		Connector: h.conn,
		Identity:  fakeIdentity{notifs: notifications.NewReconciler(h.notifs)},
		Notifier:  h.board,
		Dedup:     dedup,
		OnMessage: func(m chat.Message) {
			h.mu.Lock()
			h.observed = append(h.observed, m)
			h.mu.Unlock()
		},
	})
	t.Cleanup(h.binder.Unmount)
	return h
}

func (h *harness) observedBodies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.observed))
	for _, m := range h.observed {
		out = append(out, m.Body)
	}
	return out
}

func bodies(ms []chat.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Body)
	}
	return out
}

func TestMountLoadsCourseAndOpensRoom(t *testing.T) {
	h := newHarness(t, false)

	assert.Equal(t, Idle, h.binder.State())
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))

	assert.Equal(t, Ready, h.binder.State())
	assert.Equal(t, "c1", h.binder.CourseID())
	assert.NotEmpty(t, h.binder.Tag())
	assert.Equal(t, []string{"first in c1", "second in c1"}, bodies(h.binder.Messages()))
	assert.Equal(t, "Bob", h.binder.Messages()[0].DisplayName())
	assert.Equal(t, chat.UnknownSender, h.binder.Messages()[1].DisplayName())

	course, ok := h.binder.Course()
	require.True(t, ok)
	assert.Equal(t, "Course c1", course.Title)

	rooms := h.conn.opened()
	require.Len(t, rooms, 1)
	assert.Equal(t, "c1", rooms[0].roomID)
	assert.Equal(t, realtime.Connected, h.binder.ConnectionState())

	_, ok = h.binder.SelectedVideo()
	assert.True(t, ok)
}

func TestSendHasNoLocalEcho(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))
	room := h.conn.opened()[0]

	require.NoError(t, h.binder.SendMessage("  hello "))
	assert.Equal(t, []string{"c1|u1|hello"}, room.sentBodies())
	assert.Len(t, h.binder.Messages(), 2)

	room.deliver(dto.MessageResponse{ID: "m1", RoomID: "c1", UserID: self, Content: "hello", User: dto.UserInfo{Name: "Alice"}})

	msgs := h.binder.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello", msgs[2].Body)
	assert.Equal(t, self, msgs[2].SenderID)
	assert.Equal(t, []string{"hello"}, h.observedBodies())
}

func TestEmptyBodyNeverSends(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))
	room := h.conn.opened()[0]

	for _, body := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, h.binder.SendMessage(body), chat.ErrEmptyBody)
	}
	assert.ErrorIs(t, h.binder.SendMessage(strings.Repeat("a", chat.MaxBodyLength+1)), chat.ErrBodyTooLong)

	assert.Empty(t, room.sentBodies())
	assert.Empty(t, h.board.Drain())
}

func TestReadOnlyWhileDisconnected(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))
	room := h.conn.opened()[0]

	room.setState(realtime.Reconnecting)
	assert.ErrorIs(t, h.binder.SendMessage("hello"), ErrReadOnly)
	assert.Equal(t, realtime.Reconnecting, h.binder.ConnectionState())
	assert.Empty(t, room.sentBodies())

	room.setState(realtime.Connected)
	assert.NoError(t, h.binder.SendMessage("hello"))
}

func TestSendFailureIsNoticed(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))
	room := h.conn.opened()[0]

	room.mu.Lock()
	room.sendErr = realtime.ErrNotConnected
	room.mu.Unlock()

	assert.ErrorIs(t, h.binder.SendMessage("hello"), realtime.ErrNotConnected)
	notices := h.board.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "Failed to send message", notices[0].Title)
	assert.Len(t, h.binder.Messages(), 2)
}

func TestStaleFetchDoesNotOverwriteNewCourse(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	gate := make(chan struct{})
	h.backend.mu.Lock()
	h.backend.gates["c1"] = gate
	h.backend.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- h.binder.Mount(ctx, "c1") }()
	require.Equal(t, "c1", <-h.backend.hit)
	assert.Equal(t, Loading, h.binder.State())

	require.NoError(t, h.binder.Mount(ctx, "c2"))
	close(gate)
	require.ErrorIs(t, <-errc, ErrSuperseded)

	assert.Equal(t, Ready, h.binder.State())
	assert.Equal(t, "c2", h.binder.CourseID())
	assert.Equal(t, []string{"first in c2", "second in c2"}, bodies(h.binder.Messages()))

	course, ok := h.binder.Course()
	require.True(t, ok)
	assert.Equal(t, "c2", course.ID)

	rooms := h.conn.opened()
	require.Len(t, rooms, 1)
	assert.Equal(t, "c2", rooms[0].roomID)
}

func TestRemountClosesPreviousRoomFirst(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.binder.Mount(ctx, "c1"))
	require.NoError(t, h.binder.Mount(ctx, "c2"))

	assert.Equal(t, []string{"open c1", "close c1", "open c2"}, h.conn.log())

	old := h.conn.opened()[0]
	assert.True(t, old.isClosed())
	old.deliver(dto.MessageResponse{ID: "late", RoomID: "c1", Content: "late"})
	assert.NotContains(t, bodies(h.binder.Messages()), "late")
	assert.Empty(t, h.observedBodies())
}

func TestUnmountClosesRoom(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.binder.Mount(context.Background(), "c1"))
	room := h.conn.opened()[0]

	h.binder.Unmount()

	assert.True(t, room.isClosed())
	assert.Equal(t, TornDown, h.binder.State())
	assert.Nil(t, h.binder.Messages())
	assert.Equal(t, realtime.Disconnected, h.binder.ConnectionState())
	assert.ErrorIs(t, h.binder.SendMessage("hello"), ErrNotReady)

	_, ok := h.binder.Course()
	assert.False(t, ok)

	// повторный Unmount безопасен
	h.binder.Unmount()
	assert.Equal(t, []string{"open c1", "close c1"}, h.conn.log())
}

func TestFetchErrorAndRetry(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	h.backend.setCourseErr("c1", &apiclient.Error{Kind: apiclient.KindForbidden, Status: 403, Message: "not enrolled in this course"})

	err := h.binder.Mount(ctx, "c1")
	require.Error(t, err)
	assert.Equal(t, Error, h.binder.State())
	assert.Equal(t, apiclient.KindForbidden, apiclient.KindOf(h.binder.Err()))
	assert.Empty(t, h.conn.opened())

	notices := h.board.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "You do not have permission to access this course.", notices[0].Description)
	assert.Equal(t, notice.LevelError, notices[0].Level)

	h.backend.setCourseErr("c1", nil)
	require.NoError(t, h.binder.Retry(ctx))
	assert.Equal(t, Ready, h.binder.State())
	assert.NoError(t, h.binder.Err())
	assert.Len(t, h.conn.opened(), 1)
}

func TestUnknownCourse(t *testing.T) {
	h := newHarness(t, false)

	assert.ErrorIs(t, h.binder.Mount(context.Background(), " "), ErrInvalidCourse)
	assert.ErrorIs(t, h.binder.Retry(context.Background()), ErrNotReady)

	require.Error(t, h.binder.Mount(context.Background(), "missing"))
	notices := h.board.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "Course not found. It may have been deleted or does not exist.", notices[0].Description)
}

func TestRefreshFailureClosesRoom(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.binder.Mount(ctx, "c1"))
	room := h.conn.opened()[0]

	require.NoError(t, h.binder.Refresh(ctx))
	assert.Equal(t, Ready, h.binder.State())

	h.backend.setCourseErr("c1", &apiclient.Error{Kind: apiclient.KindServer, Status: 500})
	require.Error(t, h.binder.Refresh(ctx))

	assert.Equal(t, Error, h.binder.State())
	assert.True(t, room.isClosed())
	assert.ErrorIs(t, h.binder.SendMessage("hello"), ErrNotReady)
	assert.ErrorIs(t, h.binder.Refresh(ctx), ErrNotReady)
}

func TestOpenFailureEntersError(t *testing.T) {
	h := newHarness(t, false)
	h.conn.openErr = realtime.ErrInvalidRoom

	require.ErrorIs(t, h.binder.Mount(context.Background(), "c1"), realtime.ErrInvalidRoom)
	assert.Equal(t, Error, h.binder.State())

	notices := h.board.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "Failed to connect to chat", notices[0].Title)
}

func TestDedupOption(t *testing.T) {
	for _, tt := range []struct {
		dedup bool
		want  int
	}{
		{dedup: false, want: 4},
		{dedup: true, want: 3},
	} {
		t.Run(fmt.Sprintf("dedup=%v", tt.dedup), func(t *testing.T) {
			h := newHarness(t, tt.dedup)
			require.NoError(t, h.binder.Mount(context.Background(), "c1"))
			room := h.conn.opened()[0]

			echo := dto.MessageResponse{ID: "m1", RoomID: "c1", UserID: "u2", Content: "again"}
			room.deliver(echo)
			room.deliver(echo)
			assert.Len(t, h.binder.Messages(), tt.want)
		})
	}
}

func TestNotificationActions(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	h.notifs.items = []dto.NotificationResponse{{ID: "n1"}, {ID: "n2"}, {ID: "n3", Read: true}}
	rec := h.binder.cfg.Identity.Notifications()
	_, err := rec.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.binder.UnreadCount())

	h.notifs.mu.Lock()
	h.notifs.markFail = &apiclient.Error{Kind: apiclient.KindServer, Status: 500}
	h.notifs.mu.Unlock()

	require.Error(t, h.binder.MarkRead(ctx, "n1"))
	assert.Equal(t, 2, h.binder.UnreadCount())
	require.Len(t, h.board.Drain(), 1)

	h.notifs.mu.Lock()
	h.notifs.markFail = nil
	h.notifs.mu.Unlock()

	require.NoError(t, h.binder.MarkRead(ctx, "n1"))
	assert.Equal(t, 1, h.binder.UnreadCount())

	require.NoError(t, h.binder.MarkAllRead(ctx))
	assert.Equal(t, 0, h.binder.UnreadCount())
	for _, n := range h.binder.Notifications() {
		assert.True(t, n.Read)
	}
}

func TestVideoActions(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.binder.Mount(ctx, "c1"))

	selected, ok := h.binder.SelectedVideo()
	require.True(t, ok)
	assert.Equal(t, "v1", selected.ID)

	assert.Len(t, h.binder.SearchVideos(""), 2)
	found := h.binder.SearchVideos("SELECT")
	require.Len(t, found, 1)
	assert.Equal(t, "v2", found[0].ID)
	require.Len(t, h.binder.SearchVideos("intro"), 1)

	assert.ErrorIs(t, h.binder.SelectVideo("v9"), ErrVideoNotFound)
	require.NoError(t, h.binder.SelectVideo("v2"))

	_, err := h.binder.GenerateTranscript(ctx, "v1")
	require.Error(t, err)
	require.Len(t, h.board.Drain(), 1)

	h.backend.mu.Lock()
	h.backend.transcript = "hello world"
	h.backend.mu.Unlock()

	text, err := h.binder.GenerateTranscript(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "hello world v1", text)
	found = h.binder.SearchVideos("hello")
	require.Len(t, found, 1)
	assert.Equal(t, "v1", found[0].ID)

	require.NoError(t, h.binder.DeleteVideo(ctx, "v2"))
	assert.Equal(t, []string{"v2"}, h.backend.deleted)
	course, _ := h.binder.Course()
	require.Len(t, course.Videos, 1)

	selected, ok = h.binder.SelectedVideo()
	require.True(t, ok)
	assert.Equal(t, "v1", selected.ID)

	assert.ErrorIs(t, h.binder.DeleteVideo(ctx, "v2"), ErrVideoNotFound)
}

func TestVideoActionsRequireOwner(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.binder.Mount(ctx, "c2"))

	_, err := h.binder.GenerateTranscript(ctx, "v3")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, h.binder.DeleteVideo(ctx, "v3"), ErrNotOwner)
	assert.Empty(t, h.backend.deleted)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "torn_down", TornDown.String())
}
