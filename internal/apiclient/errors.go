package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind - класс ошибки запроса, по нему выбирается текст для пользователя
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindPaymentRequired
	KindConflict
	KindUnavailable
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindPaymentRequired:
		return "payment_required"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error - неуспешный ответ API или сетевая ошибка
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusPaymentRequired:
		return KindPaymentRequired
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusServiceUnavailable:
		return KindUnavailable
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// KindOf возвращает класс ошибки; для чужих ошибок - KindUnknown
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsCanceled - запрос отменён вызывающей стороной, показывать пользователю нечего
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UserMessage - текст ошибки загрузки курса для пользователя
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return "Course not found. It may have been deleted or does not exist."
	case KindForbidden:
		return "You do not have permission to access this course."
	case KindServer:
		return "Server error. Please try again later."
	case KindNetwork:
		return "Network error. Please check your connection and try again."
	default:
		return "Failed to load course data. Please try again later."
	}
}
