package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	ts := httptest.NewServer(Routes(hub, DefaultConfig(), zerolog.Nop()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "running")
}

func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	ts := httptest.NewServer(Routes(hub, DefaultConfig(), zerolog.Nop()))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ws", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWildcardOriginAdmitsAnyBrowser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	ts := httptest.NewServer(Routes(hub, DefaultConfig(), zerolog.Nop()))
	defer ts.Close()

	header := http.Header{"Origin": []string{"https://anywhere.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRestrictedOriginBlocksOthers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://chat.example.com"}

	ts := httptest.NewServer(Routes(hub, cfg, zerolog.Nop()))
	defer ts.Close()

	allowed := http.Header{"Origin": []string{"https://chat.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), allowed)
	require.NoError(t, err)
	_ = conn.Close()

	blocked := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), blocked)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}

func TestOriginNormalization(t *testing.T) {
	policy := newOriginPolicy([]string{"HTTPS://Chat.Example.COM"}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	assert.True(t, policy.check(req))

	req.Header.Set("Origin", "https://other.example.com")
	assert.False(t, policy.check(req))

	req.Header.Set("Origin", "not a url")
	assert.False(t, policy.check(req))
}
