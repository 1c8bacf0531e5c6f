package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilchat/veilchat/internal/protocol"
	"github.com/veilchat/veilchat/internal/secret"
)

func encrypted(t *testing.T, plaintext, passphrase string) string {
	t.Helper()
	ciphertext, err := secret.Encrypt(plaintext, passphrase)
	require.NoError(t, err)
	return ciphertext
}

func TestReceiveDecryptsWithRoomPassphrase(t *testing.T) {
	s := New("me", "room42")

	env := protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "hello world", "room42")}
	msg, ok := s.Receive(env)
	require.True(t, ok)
	assert.True(t, msg.Decrypted)
	assert.Equal(t, "hello world", msg.Plaintext)
	assert.Equal(t, env.Data, msg.Encrypted)
	assert.Len(t, s.Messages(), 1)
}

func TestReceiveStoresUndecryptable(t *testing.T) {
	s := New("me", "room42")

	env := protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "secret", "otherroom")}
	msg, ok := s.Receive(env)
	require.True(t, ok)
	assert.False(t, msg.Decrypted)
	assert.Empty(t, msg.Plaintext)
	// The message stays in the sequence as an opaque placeholder.
	assert.Len(t, s.Messages(), 1)
}

func TestReceiveDropsInvalidEnvelope(t *testing.T) {
	s := New("me", "room42")

	for _, env := range []protocol.Envelope{
		{Type: protocol.TypeText, Data: "x"},
		{SenderID: "s1", Data: "x"},
		{SenderID: "s1", Type: protocol.TypeText},
		{SenderID: "s1", Type: "video", Data: "x"},
	} {
		_, ok := s.Receive(env)
		assert.False(t, ok)
	}
	assert.Empty(t, s.Messages())
}

func TestDedupeIdempotence(t *testing.T) {
	s := New("me", "room42")
	env := protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "hi", "room42")}

	_, ok := s.Receive(env)
	require.True(t, ok)
	_, ok = s.Receive(env)
	assert.False(t, ok)
	assert.Len(t, s.Messages(), 1)
}

func TestDedupeKeyIsSenderAndCiphertext(t *testing.T) {
	s := New("me", "room42")
	data := encrypted(t, "hi", "room42")

	_, ok := s.Receive(protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: data})
	require.True(t, ok)

	// Same ciphertext from a different sender is a distinct message.
	_, ok = s.Receive(protocol.Envelope{SenderID: "s2", Type: protocol.TypeText, Data: data})
	require.True(t, ok)
	assert.Len(t, s.Messages(), 2)
}

func TestDecryptableOnlyFilter(t *testing.T) {
	s := New("me", "room42")

	_, ok := s.Receive(protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "readable", "room42")})
	require.True(t, ok)
	_, ok = s.Receive(protocol.Envelope{SenderID: "s2", Type: protocol.TypeText, Data: encrypted(t, "opaque", "otherroom")})
	require.True(t, ok)

	assert.Len(t, s.Visible(), 2)

	s.SetDecryptableOnly(true)
	visible := s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "readable", visible[0].Plaintext)

	// Toggling the filter back never loses data.
	s.SetDecryptableOnly(false)
	assert.Len(t, s.Visible(), 2)
	assert.Len(t, s.Messages(), 2)
}

func TestSetPassphraseDoesNotRedecrypt(t *testing.T) {
	s := New("me", "wrongroom")

	_, ok := s.Receive(protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "early", "room42")})
	require.True(t, ok)
	assert.False(t, s.Messages()[0].Decrypted)

	s.SetPassphrase("room42")

	// The stored message stays undecryptable; only new arrivals use the
	// new passphrase.
	assert.False(t, s.Messages()[0].Decrypted)

	_, ok = s.Receive(protocol.Envelope{SenderID: "s1", Type: protocol.TypeText, Data: encrypted(t, "late", "room42")})
	require.True(t, ok)
	assert.True(t, s.Messages()[1].Decrypted)
	assert.Equal(t, "late", s.Messages()[1].Plaintext)
}

func TestMine(t *testing.T) {
	s := New("me", "room42")

	mine, ok := s.Receive(protocol.Envelope{SenderID: "me", Type: protocol.TypeText, Data: encrypted(t, "own", "room42")})
	require.True(t, ok)
	theirs, ok := s.Receive(protocol.Envelope{SenderID: "s2", Type: protocol.TypeText, Data: encrypted(t, "other", "room42")})
	require.True(t, ok)

	assert.True(t, s.Mine(mine))
	assert.False(t, s.Mine(theirs))
}
