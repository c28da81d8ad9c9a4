package realtime

import "sync"

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Reconnecting, Disconnected},
	Connected:    {Reconnecting, Disconnected},
	Reconnecting: {Connected, Disconnected},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine - состояние соединения с действиями на вход в состояние.
// Вход в Connected (и первый, и после переподключения) запускает join комнаты.
type machine struct {
	mu      sync.Mutex
	state   State
	onEnter map[State][]func(prev State)
}

func newMachine() *machine {
	return &machine{state: Disconnected, onEnter: make(map[State][]func(State))}
}

func (m *machine) OnEnter(s State, action func(prev State)) {
	m.mu.Lock()
	m.onEnter[s] = append(m.onEnter[s], action)
	m.mu.Unlock()
}

// To переводит машину в next; недопустимый переход игнорируется и возвращает false.
// Действия выполняются вне блокировки, в горутине вызывающего.
func (m *machine) To(next State) bool {
	m.mu.Lock()
	prev := m.state
	if !allowed(prev, next) {
		m.mu.Unlock()
		return false
	}
	m.state = next
	actions := append([]func(State){}, m.onEnter[next]...)
	m.mu.Unlock()

	for _, a := range actions {
		a(prev)
	}
	return true
}

func (m *machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
