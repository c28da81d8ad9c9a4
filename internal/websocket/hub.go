package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[string]bool
	Hub    *Hub
	mu     sync.RWMutex

	sendMu sync.Mutex
	closed bool
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по UserID (один пользователь может иметь несколько соединений)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Клиенты в комнатах курсов
	rooms map[string]map[uuid.UUID]*Client

	unregister chan *Client

	pingInterval time.Duration

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[uuid.UUID]*Client),
		userClients:  make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:        make(map[string]map[uuid.UUID]*Client),
		unregister:   make(chan *Client),
		pingInterval: 30 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.closeSend()
		client.Conn.Close()
		delete(h.clients, id)
	}
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

// Register регистрирует нового клиента синхронно, до запуска его pump-ов.
// false - hub уже остановлен, соединение закрыто.
func (h *Hub) Register(client *Client) bool {
	if !h.registerClient(client) {
		client.Conn.Close()
		return false
	}
	return true
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
	return true
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	// Удаляем из всех комнат
	for _, roomID := range client.GetRooms() {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	client.closeSend()

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinRoom добавляет клиента в комнату и подтверждает вход сообщением room_joined.
// Повторный join той же комнаты тоже подтверждается: клиент шлёт его после каждого переподключения.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// клиент уже снят с регистрации или hub остановлен
	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	_, already := h.rooms[roomID][client.ID]
	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()

	if err := client.SendMessage(TypeRoomJoined, roomID, nil); err != nil {
		log.Printf("Failed to ack room join for client %s: %v", client.ID, err)
	}

	if already {
		return
	}

	// Уведомляем других участников о присоединении
	joinMsg := Message{
		Type:      TypeRoomJoin,
		RoomID:    roomID,
		UserID:    client.UserID.String(),
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(joinMsg); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}
}

// LeaveRoom удаляет клиента из комнаты
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
		return
	}

	// Уведомляем других участников
	leaveMsg := Message{
		Type:      TypeRoomLeave,
		RoomID:    roomID,
		UserID:    client.UserID.String(),
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(leaveMsg); err == nil {
		h.broadcastToRoomExcept(roomID, data, client.ID)
	}
}

// SendToUser отправляет сообщение во все соединения пользователя
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		if err := client.enqueue(message); err != nil {
			log.Printf("Client %s: %v", client.ID, err)
		}
	}
}

// SendToRoom отправляет сообщение всем в комнате, включая отправителя
func (h *Hub) SendToRoom(roomID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastToRoomExcept(roomID, message, uuid.Nil)
}

func (h *Hub) broadcastToRoomExcept(roomID string, message []byte, excludeID uuid.UUID) {
	for _, client := range h.rooms[roomID] {
		if client.ID == excludeID {
			continue
		}
		if err := client.enqueue(message); err != nil {
			log.Printf("Client %s: %v", client.ID, err)
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, client := range h.clients {
			_ = client.enqueue(data)
		}
	}
}

// RoomUsers возвращает список пользователей, подключённых к комнате
func (h *Hub) RoomUsers(roomID string) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	for _, client := range h.rooms[roomID] {
		userMap[client.UserID] = true
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
