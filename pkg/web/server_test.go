package web

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	status int
	err    error
	served bool
}

type testServer struct {
	t        *testing.T
	srv      *Server
	router   *Router
	root     string
	mu       sync.Mutex
	outcomes []outcome
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "index.html", "<html>home</html>\n")
	writeFile(t, root, "style.css", "body{}\n")
	writeFile(t, root, "status.html", "<p>{name} is {state}</p>\n<p>{missing}</p>\n")
	writeFile(t, root, "blob.bin", "binary")

	ts := &testServer{t: t, root: root}
	ts.router = NewRouter(RouterConfig{StaticRoot: root})

	srv, err := NewServer(ServerConfig{
		Router: ts.router,
		OnServed: func(_ *Request, status int, _ time.Duration) {
			ts.record(outcome{status: status, served: true})
		},
		OnFailed: func(_ *Request, status int, err error) {
			ts.record(outcome{status: status, err: err})
		},
	})
	require.NoError(t, err)
	ts.srv = srv
	return ts
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func (ts *testServer) record(o outcome) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.outcomes = append(ts.outcomes, o)
}

func (ts *testServer) last() outcome {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(ts.t, ts.outcomes)
	return ts.outcomes[len(ts.outcomes)-1]
}

// do sends raw over a loopback TCP connection and returns everything the
// server wrote before closing.
func (ts *testServer) do(raw string) string {
	ts.t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(ts.t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ts.srv.ServeConn(context.Background(), conn, "test-conn")
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(ts.t, err)

	_, err = io.WriteString(conn, raw)
	require.NoError(ts.t, err)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, err := io.ReadAll(conn)
	require.NoError(ts.t, err)
	conn.Close()

	<-done
	return string(out)
}

func get(url string, headers ...string) string {
	var b strings.Builder
	b.WriteString("GET " + url + " HTTP/1.1\r\n")
	for _, h := range headers {
		b.WriteString(h + "\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

func statusLine(resp string) string {
	line, _, _ := strings.Cut(resp, "\r\n")
	return line
}

func body(resp string) string {
	_, b, _ := strings.Cut(resp, "\r\n\r\n")
	return b
}

func TestMalformedRequestLineWritesNothing(t *testing.T) {
	ts := newTestServer(t)

	for _, line := range []string{"GET /\r\n", "GET / HTTP/1.1 extra\r\n", "\r\n"} {
		t.Run(strings.TrimSpace(line), func(t *testing.T) {
			client, server := net.Pipe()
			done := make(chan struct{})
			go func() {
				defer close(done)
				ts.srv.ServeConn(context.Background(), server, "pipe")
			}()

			go func() { _, _ = io.WriteString(client, line) }()

			out, err := io.ReadAll(client)
			require.NoError(t, err)
			assert.Empty(t, out)
			<-done

			assert.ErrorIs(t, ts.last().err, ErrProtocol)
		})
	}
}

func TestOversizedRequestLineWritesNothing(t *testing.T) {
	ts := newTestServer(t)
	out := ts.do("GET /" + strings.Repeat("a", MaxRequestLine+10) + " HTTP/1.1\r\n\r\n")
	assert.Empty(t, out)
	assert.ErrorIs(t, ts.last().err, ErrProtocol)
}

func TestUnsupportedVersion(t *testing.T) {
	ts := newTestServer(t)
	out := ts.do("GET / HTTP/2.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 505 Version Not Supported", statusLine(out))
	assert.Equal(t, "<h1>Version Not Supported</h1>", body(out))
}

func TestHTTP10Accepted(t *testing.T) {
	ts := newTestServer(t)
	ts.router.HandleFunc("/ping", func(req *Request) (Result, error) {
		_, err := req.Response().WriteString("pong")
		return Done{}, err
	})

	out := ts.do("GET /ping HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
	assert.Equal(t, "pong", body(out))
	assert.True(t, ts.last().served)
}

func TestHeaderAllowList(t *testing.T) {
	ts := newTestServer(t)

	var got map[string]string
	ts.router.HandleFunc("/h", func(req *Request) (Result, error) {
		got = req.Headers
		return Done{}, nil
	})

	ts.do(get("/h",
		"Host: example",
		"Content-Type:   application/json  ",
		"content-length: 5",
		"X-Other: 1",
	))
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, got,
		"only allow-listed names are kept, matched case-sensitively")
}

func TestTooManyHeaders(t *testing.T) {
	ts := newTestServer(t)
	headers := make([]string, MaxHeaderLines+1)
	for i := range headers {
		headers[i] = "X-Pad: 1"
	}
	out := ts.do(get("/", headers...))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", statusLine(out))
}

func TestIndexAndAssets(t *testing.T) {
	ts := newTestServer(t)

	out := ts.do(get("/"))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
	assert.Equal(t, "<html>home</html>\n", body(out))

	out = ts.do(get("/style.css"))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
	assert.Equal(t, "body{}\n", body(out))

	out = ts.do(get("/blob.bin"))
	assert.Equal(t, "HTTP/1.1 404 File Not Found", statusLine(out), "extension not allow-listed")

	out = ts.do(get("/missing.js"))
	assert.Equal(t, "HTTP/1.1 404 File Not Found", statusLine(out))

	out = ts.do(get("/../secret.html"))
	assert.Equal(t, "HTTP/1.1 404 File Not Found", statusLine(out))

	out = ts.do(get("/nothing"))
	assert.Equal(t, "HTTP/1.1 404 File Not Found", statusLine(out))
	assert.Equal(t, "<h1>File Not Found</h1>", body(out))
}

func TestTemplated(t *testing.T) {
	ts := newTestServer(t)
	ts.router.Handle("/status.html", Context{Data: map[string]any{"name": "W", "state": 1}})
	ts.router.HandleFunc("/explicit", func(*Request) (Result, error) {
		return Templated{Path: filepath.Join(ts.root, "status.html"), Context: map[string]any{"name": "G", "state": "off"}}, nil
	})
	ts.router.Handle("/gone", Templated{Path: filepath.Join(ts.root, "nope.html")})

	out := ts.do(get("/status.html"))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
	assert.Equal(t, "<p>W is 1</p>\n<p>{missing}</p>\n", body(out))

	out = ts.do(get("/explicit"))
	assert.Equal(t, "<p>G is off</p>\n<p>{missing}</p>\n", body(out))

	out = ts.do(get("/gone"))
	assert.Equal(t, "HTTP/1.1 404 File Not Found", statusLine(out))
}

func TestDelegation(t *testing.T) {
	ts := newTestServer(t)

	final := func(req *Request) (Result, error) {
		_, err := req.Response().WriteString("final")
		return nil, err
	}
	ts.router.HandleFunc("/chain", func(*Request) (Result, error) {
		return Call(func(*Request) (Result, error) { return Call(final), nil }), nil
	})

	var loop Handler
	loop = func(*Request) (Result, error) { return Call(loop), nil }
	ts.router.HandleFunc("/loop", loop)

	out := ts.do(get("/chain"))
	assert.Equal(t, "final", body(out))

	out = ts.do(get("/loop"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", statusLine(out))
	assert.ErrorIs(t, ts.last().err, ErrDelegationLimit)
}

func TestHandlerErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.router.HandleFunc("/coded", func(*Request) (Result, error) {
		return nil, NewHTTPError(501).WithHeader("X-Why", "test")
	})
	ts.router.HandleFunc("/plain", func(*Request) (Result, error) {
		return nil, errors.New("boom")
	})
	ts.router.HandleFunc("/panic", func(*Request) (Result, error) {
		panic("kaboom")
	})

	out := ts.do(get("/coded"))
	assert.Equal(t, "HTTP/1.1 501 Not Implemented", statusLine(out))
	assert.Contains(t, out, "\r\nX-Why: test\r\n")
	assert.Equal(t, 501, ts.last().status)

	out = ts.do(get("/plain"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", statusLine(out))

	out = ts.do(get("/panic"))
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", statusLine(out))

	// The server keeps serving after a panic.
	out = ts.do(get("/"))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
}

func TestPeerResetIsNotAFailureResponse(t *testing.T) {
	ts := newTestServer(t)

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.srv.ServeConn(context.Background(), server, "pipe")
	}()

	_, err := io.WriteString(client, "GET / HTTP/1.1\r\n")
	require.NoError(t, err)
	client.Close()
	<-done

	assert.True(t, IsPeerReset(ts.last().err))
}

func TestReadJSONBody(t *testing.T) {
	ts := newTestServer(t)

	var got []byte
	ts.router.HandleFunc("/json", func(req *Request) (Result, error) {
		if err := RequireMethod(req, "POST"); err != nil {
			return nil, err
		}
		b, err := ReadJSONBody(req)
		if err != nil {
			return nil, err
		}
		got = b
		return Done{}, nil
	})

	post := func(headers ...string) string {
		var b strings.Builder
		b.WriteString("POST /json HTTP/1.1\r\n")
		for _, h := range headers {
			b.WriteString(h + "\r\n")
		}
		b.WriteString("\r\n{\"a\":1}")
		return b.String()
	}

	out := ts.do(post("Content-Type: application/json", "Content-Length: 7"))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(out))
	assert.Equal(t, `{"a":1}`, string(got))

	out = ts.do(post("Content-Type: application/json"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", statusLine(out))

	out = ts.do(post("Content-Length: 7"))
	assert.Equal(t, "HTTP/1.1 400 Bad Request", statusLine(out))

	out = ts.do(post("Content-Type: text/plain", "Content-Length: 7"))
	assert.Equal(t, "HTTP/1.1 501 Not Implemented", statusLine(out))

	out = ts.do(get("/json"))
	assert.Equal(t, "HTTP/1.1 501 Not Implemented", statusLine(out))
}

func TestResponseHeaders(t *testing.T) {
	ts := newTestServer(t)
	ts.router.HandleFunc("/j", func(req *Request) (Result, error) {
		return Done{}, req.Response().JSON([]byte(`[]`))
	})

	out := ts.do(get("/j"))
	r := bufio.NewReader(strings.NewReader(out))
	line, _ := r.ReadString('\n')
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", line)
	assert.Contains(t, out, "Content-Type: application/json\r\n")
	assert.Contains(t, out, "Content-Length: 2\r\n")
	assert.Equal(t, "[]", body(out))
}

func basic(user, pass string) string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t)
	creds := Credentials{User: "admin", Password: "secret:with:colons"}

	called := 0
	ts.router.HandleFunc("/private", RequireBasicAuth(creds, func(*Request) (Result, error) {
		called++
		return Done{}, nil
	}))

	tests := []struct {
		name   string
		header []string
		want   string
	}{
		{"Valid", []string{basic("admin", "secret:with:colons")}, "200 OK"},
		{"Missing", nil, "401 Unauthorized"},
		{"WrongScheme", []string{"Authorization: Bearer abc"}, "401 Unauthorized"},
		{"BadBase64", []string{"Authorization: Basic !!!"}, "401 Unauthorized"},
		{"NoColon", []string{"Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("admin"))}, "401 Unauthorized"},
		{"WrongPassword", []string{basic("admin", "nope")}, "401 Unauthorized"},
		{"SwappedPair", []string{basic("secret:with:colons", "admin")}, "401 Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := called
			out := ts.do(get("/private", tt.header...))
			assert.Equal(t, "HTTP/1.1 "+tt.want, statusLine(out))
			if tt.want == "200 OK" {
				assert.Equal(t, before+1, called)
			} else {
				assert.Equal(t, before, called, "handler must not run")
				assert.Contains(t, out, "WWW-Authenticate: Basic realm=\"Restricted\"\r\n")
			}
		})
	}
}
