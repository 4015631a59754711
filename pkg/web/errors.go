package web

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Pipeline errors.
var (
	// ErrProtocol marks a malformed request. No response is written.
	ErrProtocol = errors.New("malformed request")

	// ErrDelegationLimit is returned when handlers delegate too deeply.
	ErrDelegationLimit = errors.New("handler delegation limit exceeded")
)

var reasons = map[int]string{
	200: "OK",
	400: "Bad Request",
	401: "Unauthorized",
	404: "File Not Found",
	500: "Internal Server Error",
	501: "Not Implemented",
	505: "Version Not Supported",
}

// Reason returns the reason phrase sent for code.
func Reason(code int) string {
	if r, ok := reasons[code]; ok {
		return r
	}
	if r := http.StatusText(code); r != "" {
		return r
	}
	return "Error"
}

// Header is a single response header.
type Header struct {
	Name  string
	Value string
}

// HTTPError is a failure that is answered with a status code.
type HTTPError struct {
	Code    int
	Reason  string
	Headers []Header
	Err     error
}

// NewHTTPError creates an HTTPError with the standard reason for code.
func NewHTTPError(code int) *HTTPError {
	return &HTTPError{Code: code, Reason: Reason(code)}
}

// Errorf creates an HTTPError wrapping a formatted cause.
func Errorf(code int, format string, args ...any) *HTTPError {
	return &HTTPError{Code: code, Reason: Reason(code), Err: fmt.Errorf(format, args...)}
}

// WithHeader adds a header to the error response.
func (e *HTTPError) WithHeader(name, value string) *HTTPError {
	e.Headers = append(e.Headers, Header{Name: name, Value: value})
	return e
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Reason)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusOf returns the status code an error is answered with.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 500
}

// IsPeerReset reports whether err means the client went away.
func IsPeerReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
