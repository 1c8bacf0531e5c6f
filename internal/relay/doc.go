// Package relay implements the server side of veilchat: an ephemeral
// single-room broadcast relay. The hub owns the set of live connections
// and fans every validated publish out to all of them, including the
// sender. The relay never inspects or stores message payloads; ciphertext
// goes in, ciphertext comes out.
//
// The implementation is organized into specialized files for the hub,
// per-connection clients, configuration, origin checks, HTTP handlers,
// and server lifecycle.
package relay
