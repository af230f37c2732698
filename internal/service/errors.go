package service

import (
	"errors"
	"fmt"
)

// Виды ошибок ядра записи. Проверяются через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error несёт вид ошибки и сообщение для клиента.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return newError(ErrInvalidArgument, format, args...)
}

// Message достаёт сообщение для клиента; внутренние ошибки получают общий текст.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
