// Package notice доставляет пользователю сообщения об ошибках и событиях сессии.
// Ни одна асинхронная ошибка клиента не пробрасывается дальше: она превращается в Notice.
package notice

import (
	"log"
	"sync"
	"time"
)

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

type Notice struct {
	Level       Level
	Title       string
	Description string
	Dismissible bool
	At          time.Time
}

type Notifier interface {
	Notify(n Notice)
}

// Func позволяет использовать обычную функцию как Notifier
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Log пишет уведомления в стандартный лог
type Log struct{}

func (Log) Notify(n Notice) {
	log.Printf("[%s] %s: %s", n.Level, n.Title, n.Description)
}

func Error(title, description string) Notice {
	return Notice{Level: LevelError, Title: title, Description: description, Dismissible: true, At: time.Now()}
}

func Info(title, description string) Notice {
	return Notice{Level: LevelInfo, Title: title, Description: description, Dismissible: true, At: time.Now()}
}

// Board накапливает уведомления, пока view их не заберёт
type Board struct {
	mu    sync.Mutex
	items []Notice
}

func (b *Board) Notify(n Notice) {
	b.mu.Lock()
	b.items = append(b.items, n)
	b.mu.Unlock()
}

// Drain возвращает накопленное и очищает доску
func (b *Board) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	return out
}
