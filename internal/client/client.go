// Package client is the Go counterpart of the relay's browser client: it
// dials the relay, encrypts outgoing messages under the room passphrase,
// and feeds received envelopes into a session. The server never sees the
// passphrase or any plaintext.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/veilchat/veilchat/internal/protocol"
	"github.com/veilchat/veilchat/internal/relay"
	"github.com/veilchat/veilchat/internal/secret"
	"github.com/veilchat/veilchat/internal/session"
)

// Client is one connected chat participant.
type Client struct {
	conn       *websocket.Conn
	passphrase string
	session    *session.Session
}

// Dial connects to the relay's WebSocket endpoint, reads the connection
// id assigned during the handshake, and builds a session around it.
func Dial(ctx context.Context, url, passphrase string) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	selfID := resp.Header.Get(relay.ConnectionIDHeader)
	if selfID == "" {
		_ = conn.Close()
		return nil, errors.New("client: relay did not assign a connection id")
	}

	return &Client{
		conn:       conn,
		passphrase: passphrase,
		session:    session.New(selfID, passphrase),
	}, nil
}

// Session exposes the accumulated message state.
func (c *Client) Session() *session.Session {
	return c.session
}

// SelfID returns the connection id the relay assigned to this client.
func (c *Client) SelfID() string {
	return c.session.SelfID()
}

// SendText encrypts the plaintext under the room passphrase and publishes
// it as a text message.
func (c *Client) SendText(text string) error {
	ciphertext, err := secret.Encrypt(text, c.passphrase)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}
	return c.publish(protocol.Publish{Type: protocol.TypeText, Data: ciphertext})
}

// SendVoice encrypts a recorded audio clip and publishes it as a voice
// message. The clip is base64-encoded so it travels the same cipher path
// as text.
func (c *Client) SendVoice(clip []byte) error {
	ciphertext, err := secret.EncryptBinary(clip, c.passphrase)
	if err != nil {
		return fmt.Errorf("encrypt voice clip: %w", err)
	}
	return c.publish(protocol.Publish{Type: protocol.TypeVoice, Data: ciphertext})
}

func (c *Client) publish(p protocol.Publish) error {
	frame, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Next blocks for the next broadcast frame and feeds it into the session.
// It returns the stored message, or ok=false when the frame was dropped
// (malformed envelope or duplicate). A transport error ends the session.
func (c *Client) Next() (session.Message, bool, error) {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return session.Message{}, false, fmt.Errorf("read envelope: %w", err)
	}

	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		return session.Message{}, false, nil
	}

	msg, ok := c.session.Receive(env)
	return msg, ok, nil
}

// Close tears down the connection. Session history stays readable until
// the client is discarded; nothing is persisted.
func (c *Client) Close() error {
	return c.conn.Close()
}
