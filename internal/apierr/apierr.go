// Package apierr defines the HTTP error envelope every handler maps engine
// and room errors onto: {"error": "<message>"} with a 4xx/5xx
// status.
package apierr

import "net/http"

// Error is a handler-facing error carrying the HTTP status to respond
// with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func BadRequest(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Status: http.StatusNotFound, Message: msg} }
func Forbidden(msg string) *Error  { return &Error{Status: http.StatusForbidden, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Status: http.StatusConflict, Message: msg} }
func Internal(msg string) *Error   { return &Error{Status: http.StatusInternalServerError, Message: msg} }

// Envelope is the JSON body of an error response.
type Envelope struct {
	Error string `json:"error"`
}

// As converts any error to an *Error, defaulting to a 400 with the
// error's own message if it isn't already one (e.g. an engine.
// ErrIllegalAction).
func As(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return BadRequest(err.Error())
}
