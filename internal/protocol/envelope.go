// Package protocol defines the wire schema exchanged between relay and
// clients: the publish request sent by a client and the canonical envelope
// broadcast to everyone. Validation lives here so the hub and the client
// session never see a malformed payload.
package protocol

import (
	"encoding/json"
	"errors"
)

// MessageType discriminates the two payload kinds carried by an envelope.
type MessageType string

const (
	// TypeText marks an encrypted text message.
	TypeText MessageType = "text"
	// TypeVoice marks an encrypted, base64-encoded audio clip.
	TypeVoice MessageType = "voice"
)

// Valid reports whether the type is one of the known message kinds.
func (t MessageType) Valid() bool {
	return t == TypeText || t == TypeVoice
}

// Publish is the client-to-server request: the sender never supplies its
// own identity, only the payload kind and the opaque ciphertext.
type Publish struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// Envelope is the only unit the relay ever broadcasts. SenderID is always
// assigned server-side from the authenticated connection; any senderId
// present in the incoming payload is ignored.
type Envelope struct {
	SenderID string      `json:"senderId"`
	Type     MessageType `json:"type"`
	Data     string      `json:"data"`
}

// ErrMalformedPublish is returned for publish payloads that do not yield a
// known type and non-empty data. The relay drops these silently.
var ErrMalformedPublish = errors.New("protocol: malformed publish payload")

// ParsePublish decodes and validates a raw publish payload.
func ParsePublish(raw []byte) (Publish, error) {
	var p Publish
	if err := json.Unmarshal(raw, &p); err != nil {
		return Publish{}, ErrMalformedPublish
	}
	if !p.Type.Valid() || p.Data == "" {
		return Publish{}, ErrMalformedPublish
	}
	return p, nil
}

// NewEnvelope builds the canonical broadcast envelope for a validated
// publish from the given connection.
func NewEnvelope(senderID string, p Publish) Envelope {
	return Envelope{SenderID: senderID, Type: p.Type, Data: p.Data}
}

// Valid reports whether a received envelope carries all three fields.
// Receivers drop anything that fails this check.
func (e Envelope) Valid() bool {
	return e.SenderID != "" && e.Type.Valid() && e.Data != ""
}

// Encode marshals the envelope for transmission.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a received frame into an envelope. It does not
// validate; callers combine it with Valid to decide whether to drop.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
