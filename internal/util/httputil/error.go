package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is an error with an HTTP status attached. Handlers return it and the caller turns it
// into a response, headers included.
type Error struct {
	code    int
	message string
	header  http.Header
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %v: %v", e.code, e.message)
}

func (e *Error) Code() int       { return e.code }
func (e *Error) Message() string { return e.message }

func (e *Error) ApplyHeaders(w http.ResponseWriter) {
	for k, vs := range e.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
}

func (e *Error) with(key, value string) *Error {
	if e.header == nil {
		e.header = make(http.Header)
	}
	e.header.Add(key, value)
	return e
}

func MakeError(code int, message string) error {
	return &Error{code: code, message: message}
}

func MakeRedirectError(code int, message string, location string) error {
	e := &Error{code: code, message: message}
	if code < 300 || code > 399 {
		return e
	}
	return e.with("Location", location)
}

// MakeBasicChallenge asks the client for Basic credentials in the given realm.
func MakeBasicChallenge(message string, realm string) error {
	e := &Error{code: http.StatusUnauthorized, message: message}
	return e.with("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm))
}

// WriteErrorResponse writes err as a plain text response. Errors without a status become 500
// and their text is not shown to the client.
func WriteErrorResponse(err error, w http.ResponseWriter) error {
	var httpErr *Error
	if !errors.As(err, &httpErr) {
		httpErr = &Error{code: http.StatusInternalServerError, message: "internal server error"}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	httpErr.ApplyHeaders(w)
	w.WriteHeader(httpErr.code)
	if _, err := io.WriteString(w, httpErr.message); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
