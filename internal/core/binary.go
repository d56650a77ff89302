// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"bytes"
	"encoding/binary"
)

// Node is the binary protocol's self-delimiting tag-attr-children tree.
// Content is exactly one of Children or Bytes; both nil means no
// content. Attrs preserves wire order even though lookups treat it as
// unordered, per the data model.
type Node struct {
	Tag      string
	Attrs    []NodeAttr
	Children []*Node
	Bytes    []byte
}

// NodeAttr is one ordered key/value pair of a Node's attribute list.
type NodeAttr struct {
	Key   string
	Value string
}

// Attr looks up an attribute by key, ignoring wire order.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// RequireAttr looks up an attribute, returning NodeAttributeMissingError
// when absent — the shape every lift from a Node uses for required
// fields.
func (n *Node) RequireAttr(key string) (string, error) {
	v, ok := n.Attr(key)
	if !ok {
		return "", &NodeAttributeMissingError{Name: key}
	}
	return v, nil
}

// Dictionary of common tags/attr names. Indices below markerList8
// double as single-byte tokens on the wire.
var tagDictionary = []string{
	"", "", "", "account", "ack", "action", "active", "add", "after", "all", "allow", "and", "android",
	"announce", "archive", "available", "battery", "before", "block", "body", "broadcast",
	"call", "call-creator", "call-id", "cancel", "caption", "chat", "child", "clear",
	"code", "composing", "config", "contact", "contacts", "count", "create", "creator",
	"decrypt", "delete", "demote", "description", "device", "devices", "disappearing",
	"done", "download", "edit", "elapsed", "encoding", "encrypt", "end", "ephemeral",
	"error", "event", "exit", "exposure", "failure", "false", "fan_out", "file",
	"filename", "format", "from", "full", "g.us", "get", "gif", "group", "groups",
	"hash", "height", "host", "id", "image", "in", "inactive", "index", "info",
	"interactive", "invite", "ios", "iq", "is", "item", "items", "jid", "keep",
	"key", "keyvalue", "keys", "kind", "large", "last", "leave", "limit",
	"linked", "list", "live", "location", "locked", "md", "media", "media_type",
	"member", "merry", "message", "messages", "meta", "mime", "mirror", "mms",
	"modify", "msg", "mute", "name", "network", "new", "news", "newsletter", "none",
	"not", "notification", "notify", "number", "of", "offline", "opt", "order", "out",
	"owner", "paid", "pairing", "participant", "participants", "paused", "phash",
	"phone", "photo", "picture", "pin", "pinned", "platform", "pn", "preview", "previous",
	"primary", "private", "promote", "props", "protocol", "push", "pushname", "query",
	"quit", "quote", "rate", "read", "reason", "receipt", "received", "recipient", "remove",
	"removed", "reply", "report", "request", "require", "reset", "resource", "result",
	"retry", "revoke", "s.whatsapp.net", "screen", "search", "sec", "secret", "seen",
	"selected", "self", "sender", "serial", "server", "session", "set", "settings",
	"sf", "shake", "share", "short", "side", "sig", "silent", "size", "sky", "slow",
	"smax", "smbiz", "source", "sponsor", "srcjid", "starred", "start", "status",
	"sticky", "storage", "store", "stop", "subject", "subscribe", "success", "sync",
	"system", "t", "tag", "taken", "target", "template", "terminate", "text", "thread",
	"ticket", "time", "timestamp", "to", "token", "true", "type", "unavailable", "undefined",
	"unique", "unknown", "unlock", "unread", "until", "update", "upgrade", "url", "user",
	"users", "v", "value", "version", "video", "voip", "wa", "web", "webp", "width",
	"write", "xmlns", "xmpp", "you", "years", "c.us",
}

// Marker bytes for the length/structure prefixes named in the node
// codec: LIST_EMPTY, LIST_8, LIST_16, JID_PAIR, HEX_8, BINARY_8,
// BINARY_20, BINARY_32, NIBBLE_8. Dictionary tokens occupy bytes below
// markerList8; decoding any byte not covered below is a strict error.
const (
	markerListEmpty = 0x00
	markerList8     = 0xF8
	markerList16    = 0xF9
	markerJidPair   = 0xFA
	markerHex8      = 0xFB
	markerBinary8   = 0xFC
	markerBinary20  = 0xFD
	markerBinary32  = 0xFE
	markerNibble8   = 0xFF
)

// EncodeNode serialises a Node (or nil, as LIST_EMPTY) to its binary
// wire form.
func EncodeNode(node *Node) []byte {
	buf := new(bytes.Buffer)
	encodeNode(buf, node)
	return buf.Bytes()
}

// DecodeNode parses a Node from its binary wire form.
func DecodeNode(data []byte) (*Node, error) {
	return decodeNode(bytes.NewReader(data))
}

func encodeNode(buf *bytes.Buffer, node *Node) {
	if node == nil {
		buf.WriteByte(markerListEmpty)
		return
	}
	hasContent := node.Children != nil || node.Bytes != nil
	itemCount := 1 + 2*len(node.Attrs)
	if hasContent {
		itemCount++
	}
	writeListMarker(buf, itemCount)
	encodeString(buf, node.Tag)
	for _, a := range node.Attrs {
		encodeString(buf, a.Key)
		encodeString(buf, a.Value)
	}
	switch {
	case node.Children != nil:
		writeListMarker(buf, len(node.Children))
		for _, c := range node.Children {
			encodeNode(buf, c)
		}
	case node.Bytes != nil:
		encodeBytes(buf, node.Bytes)
	}
}

func decodeNode(r *bytes.Reader) (*Node, error) {
	itemCount, isList, err := readListMarker(r)
	if err != nil {
		return nil, err
	}
	if !isList {
		b, _ := peekByte(r)
		return nil, &InvalidTagError{Byte: b}
	}
	if itemCount == 0 {
		return nil, nil
	}

	tag, err := decodeString(r)
	if err != nil {
		return nil, err
	}
	hasContent := (itemCount-1)%2 == 1
	numAttrs := (itemCount - 1) / 2
	if hasContent {
		numAttrs = (itemCount - 2) / 2
	}

	attrs := make([]NodeAttr, 0, numAttrs)
	for i := 0; i < numAttrs; i++ {
		key, err := decodeString(r)
		if err != nil {
			return nil, err
		}
		val, err := decodeString(r)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, NodeAttr{Key: key, Value: val})
	}

	node := &Node{Tag: tag, Attrs: attrs}
	if !hasContent {
		return node, nil
	}

	marker, err := peekByte(r)
	if err != nil {
		return nil, err
	}
	if marker == markerListEmpty || marker == markerList8 || marker == markerList16 {
		count, _, err := readListMarker(r)
		if err != nil {
			return nil, err
		}
		children := make([]*Node, 0, count)
		for i := 0; i < count; i++ {
			child, err := decodeNode(r)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		node.Children = children
		return node, nil
	}

	data, err := decodeBytes(r)
	if err != nil {
		return nil, err
	}
	node.Bytes = data
	return node, nil
}

func writeListMarker(buf *bytes.Buffer, n int) {
	switch {
	case n == 0:
		buf.WriteByte(markerListEmpty)
	case n < 256:
		buf.WriteByte(markerList8)
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(markerList16)
		binary.Write(buf, binary.BigEndian, uint16(n))
	}
}

// readListMarker reads a list-length marker. isList is false (with the
// byte left unread) when the next byte isn't LIST_EMPTY/LIST_8/LIST_16,
// so callers can fall through to a different decode path.
func readListMarker(r *bytes.Reader) (n int, isList bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch b {
	case markerListEmpty:
		return 0, true, nil
	case markerList8:
		lb, err := r.ReadByte()
		if err != nil {
			return 0, false, err
		}
		return int(lb), true, nil
	case markerList16:
		var l uint16
		if err := binary.Read(r, binary.BigEndian, &l); err != nil {
			return 0, false, err
		}
		return int(l), true, nil
	default:
		r.UnreadByte()
		return 0, false, nil
	}
}

func peekByte(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.UnreadByte()
	return b, nil
}

// encodeString writes a tag/attr string: a single-byte dictionary
// token when the dictionary has it, a JID_PAIR when it parses as a
// Jid, a nibble/hex pack for all-digit/all-hex strings, else a raw
// BINARY_* length-prefixed fallback.
func encodeString(buf *bytes.Buffer, s string) {
	if idx, ok := dictionaryIndex(s); ok {
		buf.WriteByte(byte(idx))
		return
	}
	if user, server, ok := splitJid(s); ok {
		buf.WriteByte(markerJidPair)
		encodeString(buf, user)
		encodeString(buf, server)
		return
	}
	if len(s) > 0 && len(s) <= 255 && isAllDigits(s) {
		encodeNibblePacked(buf, markerNibble8, s, digitToNibble)
		return
	}
	if len(s) > 0 && len(s) <= 255 && isAllHex(s) {
		encodeNibblePacked(buf, markerHex8, s, hexToNibble)
		return
	}
	encodeBytes(buf, []byte(s))
}

func decodeString(r *bytes.Reader) (string, error) {
	b, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	switch {
	case b >= markerDictionaryStart() && b < markerList8 && b != markerListEmpty:
		idx := int(b)
		if idx >= len(tagDictionary) || tagDictionary[idx] == "" {
			return "", &InvalidTagError{Byte: b}
		}
		return tagDictionary[idx], nil
	case b == markerJidPair:
		user, err := decodeString(r)
		if err != nil {
			return "", err
		}
		server, err := decodeString(r)
		if err != nil {
			return "", err
		}
		return user + "@" + server, nil
	case b == markerNibble8:
		return decodeNibblePacked(r, nibbleToDigit)
	case b == markerHex8:
		return decodeNibblePacked(r, nibbleToHex)
	case b == markerBinary8 || b == markerBinary20 || b == markerBinary32:
		r.UnreadByte()
		data, err := decodeBytes(r)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", &InvalidTagError{Byte: b}
	}
}

func markerDictionaryStart() byte { return 0x03 }

func dictionaryIndex(s string) (int, bool) {
	for i, entry := range tagDictionary {
		if entry != "" && entry == s && i >= int(markerDictionaryStart()) && i < markerList8 {
			return i, true
		}
	}
	return 0, false
}

func encodeBytes(buf *bytes.Buffer, data []byte) {
	switch {
	case len(data) < 256:
		buf.WriteByte(markerBinary8)
		buf.WriteByte(byte(len(data)))
	case len(data) < 1<<20:
		buf.WriteByte(markerBinary20)
		var b3 [3]byte
		b3[0] = byte(len(data) >> 16)
		b3[1] = byte(len(data) >> 8)
		b3[2] = byte(len(data))
		buf.Write(b3[:])
	default:
		buf.WriteByte(markerBinary32)
		binary.Write(buf, binary.BigEndian, uint32(len(data)))
	}
	buf.Write(data)
}

func decodeBytes(r *bytes.Reader) ([]byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var length int
	switch b {
	case markerBinary8:
		lb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		length = int(lb)
	case markerBinary20:
		var b3 [3]byte
		if _, err := r.Read(b3[:]); err != nil {
			return nil, err
		}
		length = int(b3[0])<<16 | int(b3[1])<<8 | int(b3[2])
	case markerBinary32:
		var l uint32
		if err := binary.Read(r, binary.BigEndian, &l); err != nil {
			return nil, err
		}
		length = int(l)
	default:
		return nil, &InvalidTagError{Byte: b}
	}
	out := make([]byte, length)
	if _, err := r.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// splitJid reports whether s looks like a rendered Jid (user@server),
// splitting it for JID_PAIR encoding.
func splitJid(s string) (user, server string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			if i == 0 || i == len(s)-1 {
				return "", "", false
			}
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isAllHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// digitToNibble/nibbleToDigit and hexToNibble/nibbleToHex are the two
// 4-bit alphabets NIBBLE_8 and HEX_8 pack two characters per byte with.
func digitToNibble(c byte) byte { return c - '0' }
func nibbleToDigit(n byte) byte { return '0' + n }

func hexToNibble(c byte) byte {
	if c >= 'a' {
		return c - 'a' + 10
	}
	return c - '0'
}
func nibbleToHex(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}

func encodeNibblePacked(buf *bytes.Buffer, marker byte, s string, toNibble func(byte) byte) {
	buf.WriteByte(marker)
	buf.WriteByte(byte(len(s)))
	for i := 0; i < len(s); i += 2 {
		hi := toNibble(s[i])
		var lo byte
		if i+1 < len(s) {
			lo = toNibble(s[i+1])
		}
		buf.WriteByte(hi<<4 | lo)
	}
}

func decodeNibblePacked(r *bytes.Reader, fromNibble func(byte) byte) (string, error) {
	countB, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	count := int(countB)
	nbytes := (count + 1) / 2
	packed := make([]byte, nbytes)
	if nbytes > 0 {
		if _, err := r.Read(packed); err != nil {
			return "", err
		}
	}
	out := make([]byte, 0, count)
	for i := 0; i < nbytes; i++ {
		hi := packed[i] >> 4
		lo := packed[i] & 0x0F
		out = append(out, fromNibble(hi))
		if len(out) < count {
			out = append(out, fromNibble(lo))
		}
	}
	return string(out[:count]), nil
}
