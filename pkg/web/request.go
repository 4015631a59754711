package web

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Request limits.
const (
	// MaxRequestLine bounds the request line and each header line.
	MaxRequestLine = 1024

	// MaxHeaderLines bounds the number of header lines read.
	MaxHeaderLines = 64

	// MaxBodySize bounds request bodies read through ReadBody.
	MaxBodySize = 64 * 1024
)

// Retained request headers. Names are matched case-sensitively.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
)

var allowedHeaders = map[string]bool{
	HeaderAuthorization: true,
	HeaderContentLength: true,
	HeaderContentType:   true,
}

// Request is one parsed request bound to its connection.
type Request struct {
	Method  string
	URL     string
	Path    string
	Query   string
	Version string

	// Headers holds only the allow-listed headers.
	Headers map[string]string

	ConnID     string
	RemoteAddr string
	Received   time.Time

	ctx  context.Context
	body *bufio.Reader
	resp *Response
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Header returns a retained header value.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[name]
	return v, ok
}

// Response returns the response writer for this request.
func (r *Request) Response() *Response {
	return r.resp
}

// ContentLength returns the parsed Content-Length header.
func (r *Request) ContentLength() (int, error) {
	v, ok := r.Headers[HeaderContentLength]
	if !ok {
		return 0, Errorf(400, "missing %s", HeaderContentLength)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, Errorf(400, "invalid %s %q", HeaderContentLength, v)
	}
	return n, nil
}

// ReadBody reads exactly Content-Length bytes of body.
func (r *Request) ReadBody() ([]byte, error) {
	n, err := r.ContentLength()
	if err != nil {
		return nil, err
	}
	if n > MaxBodySize {
		return nil, Errorf(400, "body of %d bytes exceeds %d", n, MaxBodySize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.body, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readLine reads one CRLF or LF terminated line of at most
// MaxRequestLine bytes.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrProtocol, MaxRequestLine)
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// parseRequestLine splits a request line into method, URL and version.
func parseRequestLine(line string) (method, url, proto string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf("%w: request line has %d fields", ErrProtocol, len(fields))
	}
	return fields[0], fields[1], fields[2], nil
}

// readHeaders reads header lines until one without a ':' separator.
// Headers outside the allow-list are discarded.
func readHeaders(br *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string, len(allowedHeaders))
	for i := 0; ; i++ {
		if i >= MaxHeaderLines {
			return nil, Errorf(400, "more than %d header lines", MaxHeaderLines)
		}
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return headers, nil
		}
		if allowedHeaders[name] {
			headers[name] = strings.TrimSpace(value)
		}
	}
}

func splitURL(url string) (path, query string) {
	path, query, _ = strings.Cut(url, "?")
	return path, query
}
