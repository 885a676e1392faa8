package generate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies why a generation request failed.
type ErrorKind string

const (
	// KindTransport means the backend could not be reached.
	KindTransport ErrorKind = "transport"
	// KindBackend means the backend answered with an error.
	KindBackend ErrorKind = "backend"
	// KindMalformed means the backend answered 200 without a result.
	KindMalformed ErrorKind = "malformed"
)

const transportMessage = "Could not reach the story backend"

// Error is returned by every Client method. Error() is the message shown to the reader.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so callers can test errors.Is(err, &Error{Kind: KindBackend}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of a generation error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: transportMessage, Err: err}
}

func statusFallback(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}

// errorField accepts {"error": {"message": "..."}} as well as {"error": "..."}.
type errorField struct {
	Message string
}

func (f *errorField) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		f.Message = text
		return nil
	}
	var object struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	f.Message = object.Message
	return nil
}
