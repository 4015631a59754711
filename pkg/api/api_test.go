package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therminator/therminator-go/pkg/channel"
	"github.com/therminator/therminator-go/pkg/failsafe"
	"github.com/therminator/therminator-go/pkg/gpio"
	"github.com/therminator/therminator-go/pkg/guard"
	"github.com/therminator/therminator-go/pkg/web"
)

var testCreds = web.Credentials{User: "098765432123456", Password: "123456789098765"}

type harness struct {
	t      *testing.T
	api    *API
	reg    *channel.Registry
	pins   map[string]*gpio.SimPin
	server *web.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	il, err := failsafe.New(failsafe.Config{Rail: gpio.NewSimPin(22), MaxOn: time.Hour})
	require.NoError(t, err)

	pins := make(map[string]*gpio.SimPin)
	var defs []channel.Definition
	for i, id := range channel.HeatingIDs {
		p := gpio.NewSimPin(12 + i)
		pins[id] = p
		defs = append(defs, channel.Definition{ID: id, Pin: p})
	}
	reg, err := channel.NewRegistry(channel.Config{Channels: defs, Interlock: il})
	require.NoError(t, err)

	root := t.TempDir()
	index := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(index, []byte("<h1>therminator</h1>"), 0o644))

	a, err := New(Config{
		Registry:    reg,
		Guard:       guard.New(guard.Config{Spacing: -1}),
		Credentials: testCreds,
		IndexPath:   index,
	})
	require.NoError(t, err)

	router := web.NewRouter(web.RouterConfig{StaticRoot: root})
	a.Register(router)
	srv, err := web.NewServer(web.ServerConfig{Router: router})
	require.NoError(t, err)

	return &harness{t: t, api: a, reg: reg, pins: pins, server: srv}
}

type response struct {
	status int
	header string
	body   string
}

func (h *harness) do(method, path, body string, headers ...string) response {
	h.t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(h.t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		h.server.ServeConn(context.Background(), conn, "test")
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(h.t, err)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	for _, hd := range headers {
		b.WriteString(hd + "\r\n")
	}
	b.WriteString("\r\n" + body)
	_, err = io.WriteString(conn, b.String())
	require.NoError(h.t, err)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw, err := io.ReadAll(conn)
	require.NoError(h.t, err)
	conn.Close()
	<-done

	head, rest, _ := strings.Cut(string(raw), "\r\n\r\n")
	var status int
	_, err = fmt.Sscanf(head, "HTTP/1.1 %d", &status)
	require.NoError(h.t, err, "response: %q", raw)
	return response{status: status, header: head, body: rest}
}

func auth() string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(testCreds.User+":"+testCreds.Password))
}

func jsonHeaders(body string) []string {
	return []string{auth(), "Content-Type: application/json", fmt.Sprintf("Content-Length: %d", len(body))}
}

func (h *harness) post(path, body string) response {
	return h.do("POST", path, body, jsonHeaders(body)...)
}

func TestPingAndIndex(t *testing.T) {
	h := newHarness(t)

	r := h.do("GET", "/ping", "")
	assert.Equal(t, 200, r.status)
	assert.Equal(t, "pong", r.body)

	r = h.do("GET", "/", "")
	assert.Equal(t, 200, r.status)
	assert.Equal(t, "<h1>therminator</h1>", r.body)
}

func TestAPIRequiresAuth(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{PathGetChannelStates, PathGetRelayPower} {
		r := h.do("GET", path, "")
		assert.Equal(t, 401, r.status, path)
		assert.Contains(t, r.header, `WWW-Authenticate: Basic realm="Restricted"`)
	}
}

func TestGetChannelStates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.Set("W", true))

	r := h.do("GET", PathGetChannelStates, "", auth())
	require.Equal(t, 200, r.status)
	assert.Contains(t, r.header, "Content-Type: application/json")

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.body), &got))
	require.Len(t, got, 4)
	assert.Equal(t, map[string]any{"channel": "R", "output": float64(12), "enable": float64(0)}, got[0])
	assert.Equal(t, map[string]any{"channel": "W", "output": float64(13), "enable": float64(1)}, got[1])
}

func TestGetChannelStatesWrongMethod(t *testing.T) {
	h := newHarness(t)
	r := h.post(PathGetChannelStates, "{}")
	assert.Equal(t, 501, r.status)
	assert.Equal(t, "<h1>Not Implemented</h1>", r.body)
}

func TestSetChannelStatesRoundTrip(t *testing.T) {
	h := newHarness(t)

	r := h.post(PathSetChannelStates, `{"a": {"channel": "W", "enable": 1}, "b": [{"channel": "g", "enable": "1"}, {"channel": "R", "enable": true}]}`)
	require.Equal(t, 200, r.status, r.body)

	r = h.do("GET", PathGetChannelStates, "", auth())
	var got []channelState
	require.NoError(t, json.Unmarshal([]byte(r.body), &got))
	assert.Equal(t, []channelState{
		{Channel: "R", Output: 12, Enable: 1},
		{Channel: "W", Output: 13, Enable: 1},
		{Channel: "W2", Output: 14, Enable: 0},
		{Channel: "G", Output: 15, Enable: 1},
	}, got)

	v, err := h.pins["G"].Get()
	require.NoError(t, err)
	assert.True(t, v)
}

func TestSetChannelStatesDocumentOrder(t *testing.T) {
	h := newHarness(t)

	r := h.post(PathSetChannelStates, `{"z": {"channel": "W", "enable": 1}, "a": {"channel": "W", "enable": 0}}`)
	require.Equal(t, 200, r.status)

	on, err := h.reg.Get("W")
	require.NoError(t, err)
	assert.False(t, on, "later keys in the document apply last")
}

func TestSetChannelStatesUnknownChannel(t *testing.T) {
	h := newHarness(t)

	r := h.post(PathSetChannelStates, `{"x": [{"channel": "W", "enable": 1}, {"channel": "Q", "enable": 1}]}`)
	assert.Equal(t, 500, r.status)

	on, err := h.reg.Get("W")
	require.NoError(t, err)
	assert.False(t, on, "nothing is applied when an id is unknown")
}

func TestSetChannelStatesBadRequests(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		headers []string
		body    string
		want    int
	}{
		{"MissingContentLength", []string{auth(), "Content-Type: application/json"}, `{}`, 400},
		{"MissingContentType", []string{auth(), "Content-Length: 2"}, `{}`, 400},
		{"NotJSON", []string{auth(), "Content-Type: text/plain", "Content-Length: 2"}, `{}`, 501},
		{"Malformed", jsonHeaders(`{"a":`), `{"a":`, 400},
		{"NotObject", jsonHeaders(`[1]`), `[1]`, 400},
		{"MissingEnable", jsonHeaders(`{"a":{"channel":"W"}}`), `{"a":{"channel":"W"}}`, 400},
		{"BadEnable", jsonHeaders(`{"a":{"channel":"W","enable":"maybe"}}`), `{"a":{"channel":"W","enable":"maybe"}}`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := h.do("POST", PathSetChannelStates, tt.body, tt.headers...)
			assert.Equal(t, tt.want, r.status)
		})
	}

	r := h.do("GET", PathSetChannelStates, "", auth())
	assert.Equal(t, 501, r.status)
}

func TestRelayPower(t *testing.T) {
	h := newHarness(t)

	r := h.do("GET", PathGetRelayPower, "", auth())
	require.Equal(t, 200, r.status)
	assert.JSONEq(t, `{"enable":0,"remaining_ms":0}`, r.body)

	r = h.post(PathSetRelayPower, `{"enable":"1"}`)
	require.Equal(t, 200, r.status)
	assert.True(t, h.reg.Power().Enabled())

	r = h.do("GET", PathGetRelayPower, "", auth())
	var got relayPower
	require.NoError(t, json.Unmarshal([]byte(r.body), &got))
	assert.Equal(t, 1, got.Enable)
	assert.Greater(t, got.RemainingMs, int64(59*60*1000))

	r = h.post(PathSetRelayPower, `{"enable":0}`)
	require.Equal(t, 200, r.status)
	assert.False(t, h.reg.Power().Enabled())

	for _, body := range []string{`{"enable":"2"}`, `{"enable":"yes"}`, `{}`, `"1"`} {
		r = h.post(PathSetRelayPower, body)
		assert.Equal(t, 400, r.status, body)
	}
}

func TestShutdownRecordsRequest(t *testing.T) {
	h := newHarness(t)

	var seen []ShutdownRequest
	h.api.onShutdown = func(sr ShutdownRequest) { seen = append(seen, sr) }

	r := h.do("GET", PathShutdown, "", auth())
	assert.Equal(t, 501, r.status)
	assert.Empty(t, h.api.Shutdowns())

	r = h.post(PathShutdown, "")
	require.Equal(t, 200, r.status)

	got := h.api.Shutdowns()
	require.Len(t, got, 1)
	assert.Equal(t, "127.0.0.1", got[0].Remote)
	assert.WithinDuration(t, time.Now(), got[0].Time, 5*time.Second)
	assert.Len(t, seen, 1)
}

func TestParseChannelEntries(t *testing.T) {
	entries, err := parseChannelEntries([]byte(`{"one": {"channel": 2, "enable": 1}, "many": [{"channel": "Y", "enable": 0}]}`))
	require.NoError(t, err)
	assert.Equal(t, []channel.Entry{{ID: "2", On: true}, {ID: "Y", On: false}}, entries)

	entries, err = parseChannelEntries([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = parseChannelEntries([]byte(`{"x": [1]}`))
	assert.Error(t, err)
}
