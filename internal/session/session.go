// Package session holds the client-side state of a chat session: the
// ordered message list, duplicate suppression, opportunistic decryption,
// and the decryptable-only view filter.
package session

import (
	"github.com/samber/lo"

	"github.com/veilchat/veilchat/internal/protocol"
	"github.com/veilchat/veilchat/internal/secret"
)

// Message is a received envelope as the client stores it. Plaintext is
// meaningful only when Decrypted is true; an undecryptable message keeps
// its ciphertext and renders as an opaque placeholder.
type Message struct {
	Type      protocol.MessageType
	SenderID  string
	Encrypted string
	Plaintext string
	Decrypted bool
}

type dedupeKey struct {
	senderID  string
	encrypted string
}

// Session accumulates messages received over one connection. It is not
// safe for concurrent use; the receive loop owns it.
type Session struct {
	selfID          string
	passphrase      string
	decryptableOnly bool
	seen            map[dedupeKey]struct{}
	messages        []Message
}

// New creates a session for the connection identified by selfID, using
// the given room passphrase for decryption attempts.
func New(selfID, passphrase string) *Session {
	return &Session{
		selfID:     selfID,
		passphrase: passphrase,
		seen:       make(map[dedupeKey]struct{}),
	}
}

// SelfID returns the connection id assigned to this client by the relay.
func (s *Session) SelfID() string {
	return s.selfID
}

// SetPassphrase swaps the passphrase used for future messages. Messages
// already stored are not re-decrypted; a message that arrived under the
// wrong passphrase stays undecryptable. This is a documented limitation.
func (s *Session) SetPassphrase(passphrase string) {
	s.passphrase = passphrase
}

// Receive validates, deduplicates, and stores one envelope. It returns
// the stored message and true, or a zero message and false when the
// envelope was dropped (malformed or already seen).
func (s *Session) Receive(env protocol.Envelope) (Message, bool) {
	if !env.Valid() {
		return Message{}, false
	}

	key := dedupeKey{senderID: env.SenderID, encrypted: env.Data}
	if _, dup := s.seen[key]; dup {
		return Message{}, false
	}
	s.seen[key] = struct{}{}

	plaintext, ok := secret.Decrypt(env.Data, s.passphrase)
	msg := Message{
		Type:      env.Type,
		SenderID:  env.SenderID,
		Encrypted: env.Data,
		Plaintext: plaintext,
		Decrypted: ok,
	}
	s.messages = append(s.messages, msg)
	return msg, true
}

// Mine reports whether the message originated from this client.
func (s *Session) Mine(msg Message) bool {
	return msg.SenderID == s.selfID
}

// SetDecryptableOnly toggles the view filter. The underlying sequence is
// never modified, so toggling the filter loses nothing.
func (s *Session) SetDecryptableOnly(on bool) {
	s.decryptableOnly = on
}

// Messages returns the full stored sequence in arrival order.
func (s *Session) Messages() []Message {
	return s.messages
}

// Visible returns the messages to render, honoring the decryptable-only
// filter.
func (s *Session) Visible() []Message {
	if !s.decryptableOnly {
		return s.messages
	}
	return lo.Filter(s.messages, func(m Message, _ int) bool {
		return m.Decrypted
	})
}
