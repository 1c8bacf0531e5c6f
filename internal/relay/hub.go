package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilchat/veilchat/internal/protocol"
)

// publishRequest pairs a raw client payload with the connection id the
// relay authenticated at accept time.
type publishRequest struct {
	senderID string
	payload  []byte
}

// Hub owns the set of live connections and performs broadcast fan-out.
// All state is confined to the Run goroutine: connection events and
// publishes arrive over channels and are handled one at a time, so the
// client map needs no locking and every client observes broadcasts in
// the order the hub processed them.
type Hub struct {
	log zerolog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	publish    chan publishRequest

	clientCount atomic.Int64
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHub creates a hub ready to accept connections once Run is started.
func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan publishRequest),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a newly accepted connection to the hub, which starts its
// read and write pumps. No-op once shutdown has begun.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection from the active set. Safe to call more
// than once for the same client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Publish submits a raw payload received from the identified connection
// for validation and broadcast. Fire-and-forget: malformed payloads are
// dropped and no outcome is reported to the sender.
func (h *Hub) Publish(senderID string, payload []byte) {
	select {
	case h.publish <- publishRequest{senderID: senderID, payload: payload}:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the current number of active connections.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Run is the hub's event loop. Each connect, disconnect, and publish is
// handled to completion before the next; call it in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.clientCount.Store(int64(len(h.clients)))
			h.log.Info().
				Str("conn_id", client.ID()).
				Str("addr", client.addr).
				Int("clients", len(h.clients)).
				Msg("client connected")

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.drop(client, "client disconnected")

		case req := <-h.publish:
			h.broadcast(req)
		}
	}
}

// drop removes a client from the active set and closes its send channel.
// Clients already removed are ignored, so disconnect and eviction cannot
// double-close.
func (h *Hub) drop(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.clientCount.Store(int64(len(h.clients)))
	close(client.send)
	h.log.Info().
		Str("conn_id", client.ID()).
		Int("clients", len(h.clients)).
		Msg(reason)
}

// broadcast validates one publish and delivers the canonical envelope to
// every active connection, the sender included. Clients whose send
// buffers are full are evicted rather than blocking the loop.
func (h *Hub) broadcast(req publishRequest) {
	pub, err := protocol.ParsePublish(req.payload)
	if err != nil {
		h.log.Debug().Str("conn_id", req.senderID).Msg("dropping malformed publish")
		return
	}

	frame, err := protocol.NewEnvelope(req.senderID, pub).Encode()
	if err != nil {
		h.log.Error().Err(err).Msg("encoding envelope")
		return
	}

	var evicted []*Client
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			evicted = append(evicted, client)
		}
	}
	for _, client := range evicted {
		h.drop(client, "client evicted: send buffer full")
	}

	h.log.Debug().
		Str("sender_id", req.senderID).
		Str("type", string(pub.Type)).
		Int("clients", len(h.clients)).
		Msg("broadcast delivered")
}

// closeAll drops every remaining connection during shutdown. Closing the
// send channels and the sockets unblocks both pumps of each client.
func (h *Hub) closeAll() {
	h.log.Info().Int("clients", len(h.clients)).Msg("closing all client connections")
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn().Err(err).Str("conn_id", client.ID()).Msg("closing client connection")
		}
	}
	h.clientCount.Store(0)
}

// Shutdown stops the event loop and waits for all client goroutines to
// finish, up to the given timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("hub shutting down")
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info().Msg("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
