package relay

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnectionIDHeader carries the assigned connection id back to the
// client in the upgrade handshake response. The client uses it to tell
// its own broadcasts apart from everyone else's; it is never sent to
// other connections.
const ConnectionIDHeader = "X-Connection-Id"

// WebSocketHandler upgrades requests on the chat endpoint and registers
// the resulting connection with the hub.
func WebSocketHandler(hub *Hub, cfg Config, log zerolog.Logger) http.HandlerFunc {
	policy := newOriginPolicy(cfg.AllowedOrigins, log)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		client := NewClient(nil, hub, r.RemoteAddr, cfg, log)
		conn, err := upgrader.Upgrade(w, r, http.Header{ConnectionIDHeader: []string{client.ID()}})
		if err != nil {
			log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}
		client.conn = conn
		conn.SetReadLimit(cfg.MaxMessageSize)

		// The hub launches the pump goroutines.
		hub.Register(client)
	}
}

// HealthHandler answers the unauthenticated liveness probe.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "veilchat relay is running")
}

// Routes wires the relay's HTTP surface: the health check at the root
// and the WebSocket endpoint at /ws.
func Routes(hub *Hub, cfg Config, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub, cfg, log))
	return mux
}
