package web

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/therminator/therminator-go/pkg/version"
)

// Response writes one HTTP/1.1 response. The status line and headers are
// sent on the first body write or an explicit WriteHeader.
type Response struct {
	w           *bufio.Writer
	headers     []Header
	status      int
	wroteHeader bool
	bytes       int64
}

func newResponse(w io.Writer) *Response {
	return &Response{w: bufio.NewWriter(w)}
}

// SetHeader queues a header for the response head.
func (r *Response) SetHeader(name, value string) {
	r.headers = append(r.headers, Header{Name: name, Value: value})
}

// WriteHeader sends the status line and queued headers. Later calls are
// ignored.
func (r *Response) WriteHeader(code int) error {
	if r.wroteHeader {
		return nil
	}
	r.wroteHeader = true
	r.status = code

	if _, err := fmt.Fprintf(r.w, "%s %d %s\r\n", version.Response, code, Reason(code)); err != nil {
		return err
	}
	for _, h := range r.headers {
		if _, err := fmt.Fprintf(r.w, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}
	_, err := r.w.WriteString("\r\n")
	return err
}

// Write sends body bytes, writing a 200 head first if needed.
func (r *Response) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		if err := r.WriteHeader(200); err != nil {
			return 0, err
		}
	}
	n, err := r.w.Write(p)
	r.bytes += int64(n)
	return n, err
}

// WriteString sends a string body.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// Status returns the status written, or 0 if none.
func (r *Response) Status() int {
	return r.status
}

// Written reports whether the head has been written.
func (r *Response) Written() bool {
	return r.wroteHeader
}

// Bytes returns the number of body bytes written.
func (r *Response) Bytes() int64 {
	return r.bytes
}

// writeError sends the minimal error response. It is a no-op once a head
// has gone out.
func (r *Response) writeError(he *HTTPError) error {
	if r.wroteHeader {
		return nil
	}
	r.headers = append(r.headers[:0], he.Headers...)
	if err := r.WriteHeader(he.Code); err != nil {
		return err
	}
	_, err := r.WriteString("<h1>" + he.Reason + "</h1>")
	return err
}

// JSON writes a 200 response with a JSON body.
func (r *Response) JSON(body []byte) error {
	r.SetHeader(HeaderContentType, "application/json")
	r.SetHeader(HeaderContentLength, strconv.Itoa(len(body)))
	_, err := r.Write(body)
	return err
}

func (r *Response) flush() error {
	return r.w.Flush()
}
