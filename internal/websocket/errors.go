package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrEmptyMessage    = errors.New("message content is empty")
	ErrMessageTooLong  = errors.New("message content is too long")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotInRoom   = errors.New("user not in room")
)
