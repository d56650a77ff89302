// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

// WebsocketMessagePayloadKind discriminates the five payload shapes a
// frame can carry.
type WebsocketMessagePayloadKind int

const (
	PayloadJson WebsocketMessagePayloadKind = iota
	PayloadBinaryEphemeral
	PayloadBinarySimple
	PayloadEmpty
	PayloadPong
)

// WebsocketMessage is a decoded frame: a tag plus one of the five
// payload shapes.
type WebsocketMessage struct {
	Tag     string
	Kind    WebsocketMessagePayloadKind
	Json    json.RawMessage // set iff Kind == PayloadJson
	Metric  byte            // set iff Kind == PayloadBinaryEphemeral
	Flag    byte            // set iff Kind == PayloadBinaryEphemeral
	Binary  []byte          // set iff Kind == PayloadBinaryEphemeral or PayloadBinarySimple
}

// DecodeTextFrame parses a WebSocket text frame of the form
// "tag,payload". The payload is empty, "pong", or a JSON document;
// anything else arriving as text is treated as an (unusual but
// tolerated) raw string payload folded into an empty frame so the
// demultiplexer can decide what, if anything, to do with it.
func DecodeTextFrame(data string) WebsocketMessage {
	tag, payload, _ := strings.Cut(data, ",")
	switch {
	case payload == "":
		return WebsocketMessage{Tag: tag, Kind: PayloadEmpty}
	case payload == "pong":
		return WebsocketMessage{Tag: tag, Kind: PayloadPong}
	case strings.HasPrefix(payload, "[") || strings.HasPrefix(payload, "{"):
		return WebsocketMessage{Tag: tag, Kind: PayloadJson, Json: json.RawMessage(payload)}
	default:
		return WebsocketMessage{Tag: tag, Kind: PayloadEmpty}
	}
}

// DecodeBinaryFrame parses a WebSocket binary frame. The tag is the
// ASCII text up to the first comma (WhatsApp still frames binary
// payloads as "tag," followed by raw bytes within the same message);
// what follows is either a metric+flag-prefixed ephemeral ciphertext,
// or a simple ciphertext with no prefix. The discriminator is whether
// a metric byte was present in the frame as registered by the caller
// when it built the tag — this package keeps both shapes available to
// the demultiplexer and decrypts either one identically (see §9's open
// question: the ephemeral/simple split is preserved but unexercised
// beyond accept-and-log).
func DecodeBinaryFrame(data []byte, ephemeral bool) WebsocketMessage {
	comma := bytes.IndexByte(data, ',')
	if comma < 0 {
		return WebsocketMessage{Kind: PayloadBinarySimple, Binary: data}
	}
	tag := string(data[:comma])
	rest := data[comma+1:]
	if ephemeral && len(rest) >= 2 {
		return WebsocketMessage{
			Tag:    tag,
			Kind:   PayloadBinaryEphemeral,
			Metric: rest[0],
			Flag:   rest[1],
			Binary: rest[2:],
		}
	}
	return WebsocketMessage{Tag: tag, Kind: PayloadBinarySimple, Binary: rest}
}

// EncodeTextFrame builds the wire form of a tag+JSON frame.
func EncodeTextFrame(tag string, payload []byte) string {
	return tag + "," + string(payload)
}

// EncodeBinaryFrame builds the wire form of a tag+ciphertext frame,
// always in the BinarySimple shape — this library never emits the
// ephemeral (metric-prefixed) form, matching the open question
// resolution that the inbound ephemeral path is observed but unused.
func EncodeBinaryFrame(tag string, ciphertext []byte) []byte {
	out := make([]byte, 0, len(tag)+1+len(ciphertext))
	out = append(out, tag...)
	out = append(out, ',')
	out = append(out, ciphertext...)
	return out
}

// KeepaliveFrame is the liveness ping: a tagless "?,," text frame.
const KeepaliveFrame = "?,,"
