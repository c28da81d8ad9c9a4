package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRoom        = errors.New("room id is empty")
	ErrMissingCredentials = errors.New("credentials are required")
	ErrNotConnected       = errors.New("realtime connection is not established")
	ErrNotJoined          = errors.New("room join is not acknowledged yet")
	ErrWrongRoom          = errors.New("message addressed to another room")
	ErrUnauthorized       = errors.New("realtime handshake rejected credentials")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrBadFrame           = errors.New("malformed realtime frame")
)

// ServerError - кадр error от сервера (например, нет доступа к комнате)
type ServerError struct {
	RoomID  string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request in room %s: %s", e.RoomID, e.Message)
}
