// Package result is the envelope every operation answers with:
//
//	{"ok": true, "data": ...}
//	{"ok": false, "error": {"code": "...", "message": "..."}}
package result

import (
	"encoding/json"
	"fmt"
)

type Code string

const (
	NotFound      Code = "NOT_FOUND"
	InvalidTime   Code = "INVALID_TIME"
	InvalidFormat Code = "INVALID_FORMAT"
	InvalidInput  Code = "INVALID_INPUT"
	Cancelled     Code = "CANCELLED"

	DBError           Code = "DB_ERROR"
	ExportError       Code = "EXPORT_ERROR"
	ImportError       Code = "IMPORT_ERROR"
	ReminderError     Code = "REMINDER_ERROR"
	NotificationError Code = "NOTIFICATION_ERROR"
)

// Kind groups codes the way callers react to them.
type Kind int

const (
	KindNotFound Kind = iota
	KindValidation
	KindCancelled
	KindUnexpected
)

func (c Code) Kind() Kind {
	switch c {
	case NotFound:
		return KindNotFound
	case InvalidTime, InvalidFormat, InvalidInput:
		return KindValidation
	case Cancelled:
		return KindCancelled
	default:
		return KindUnexpected
	}
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Result[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data"`
	Error *Error `json:"error"`
}

// MarshalJSON writes data on success and error on failure, never both.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(struct {
			OK   bool `json:"ok"`
			Data T    `json:"data"`
		}{true, r.Data})
	}
	return json.Marshal(struct {
		OK    bool   `json:"ok"`
		Error *Error `json:"error"`
	}{false, r.Error})
}

func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

func Fail[T any](code Code, message string) Result[T] {
	return Result[T]{Error: &Error{Code: code, Message: message}}
}

// Err returns the failure as an error, or nil for a success.
func (r Result[T]) Err() error {
	if r.OK || r.Error == nil {
		return nil
	}
	return r.Error
}
