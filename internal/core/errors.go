// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "fmt"

// Sentinel and typed errors surfaced by the engine. Named after the error
// kinds they stand in for rather than wrapped as a single catch-all, so
// callers can type-switch on them the way the engine's Rust ancestor let
// callers match on WaError variants.
var (
	ErrInvalidSessionState  = fmt.Errorf("core: invalid session state for operation")
	ErrNoJidYet             = fmt.Errorf("core: own jid not yet known")
	ErrInvalidDirection     = fmt.Errorf("core: chat message direction must be Sending to submit")
	ErrTimeout              = fmt.Errorf("core: liveness timeout")
	ErrWebsocketDisconnected = fmt.Errorf("core: websocket disconnected")
)

// DisconnectReason distinguishes the two shapes of server-initiated
// disconnect.
type DisconnectReason int

const (
	DisconnectRemoved DisconnectReason = iota
	DisconnectReplaced
)

func (r DisconnectReason) String() string {
	if r == DisconnectReplaced {
		return "replaced"
	}
	return "removed"
}

// DisconnectedError is returned when the server closes the session.
type DisconnectedError struct {
	Reason DisconnectReason
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("core: disconnected (%s)", e.Reason)
}

// StatusCodeError wraps a non-200 status surfaced by a callback response
// that isn't the speculative ack path (that one becomes MessageSendFail
// instead, see event.go).
type StatusCodeError struct {
	Code int
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("core: server returned status %d", e.Code)
}

// NodeAttributeMissingError reports a required Node attribute absent
// during a lift from the wire.
type NodeAttributeMissingError struct {
	Name string
}

func (e *NodeAttributeMissingError) Error() string {
	return fmt.Sprintf("core: node attribute %q missing", e.Name)
}

// JsonFieldMissingError reports a required JSON field absent during a
// response parse.
type JsonFieldMissingError struct {
	Name string
}

func (e *JsonFieldMissingError) Error() string {
	return fmt.Sprintf("core: json field %q missing", e.Name)
}

// InvalidTagError is returned by the Node decoder on an unrecognised
// dictionary/marker byte. Decoding is strict: there is no silent skip.
type InvalidTagError struct {
	Byte byte
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("core: invalid node tag byte 0x%02x", e.Byte)
}

// InvalidPayloadError reports a callback whose response frame didn't
// match the shape its CallbackKind expected.
type InvalidPayloadError struct {
	Callback string
	FrameKind string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("core: callback %s received unexpected frame kind %s", e.Callback, e.FrameKind)
}

// CryptoError wraps any HMAC/AES failure in the authenticated-encryption
// layer: bad MAC, bad padding, peer-key mismatch.
type CryptoError struct {
	Message string
}

func (e *CryptoError) Error() string {
	return "core: crypto: " + e.Message
}
