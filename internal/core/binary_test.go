package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNodeRoundTrip(t *testing.T) {
	n := &Node{
		Tag: "message",
		Attrs: []NodeAttr{
			{Key: "id", Value: "3EB0C767D26A1D8E8C"},
			{Key: "from", Value: "15551234567@c.us"},
		},
		Children: []*Node{
			{Tag: "body", Bytes: []byte("hello world")},
		},
	}

	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)

	assert.Equal(t, n.Tag, got.Tag)
	assert.Equal(t, n.Attrs, got.Attrs)
	require.Len(t, got.Children, 1)
	assert.Equal(t, n.Children[0].Tag, got.Children[0].Tag)
	assert.Equal(t, n.Children[0].Bytes, got.Children[0].Bytes)
}

func TestEncodeDecodeNodeNilRoundTrip(t *testing.T) {
	wire := EncodeNode(nil)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodeDecodeNodeWithNoContentRoundTrip(t *testing.T) {
	n := &Node{Tag: "ack", Attrs: []NodeAttr{{Key: "status", Value: "200"}}}
	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Equal(t, n.Tag, got.Tag)
	assert.Equal(t, n.Attrs, got.Attrs)
	assert.Nil(t, got.Children)
	assert.Nil(t, got.Bytes)
}

func TestEncodeDecodeNodeJidPairAttr(t *testing.T) {
	n := &Node{
		Tag:   "presence",
		Attrs: []NodeAttr{{Key: "jid", Value: "15551234567@s.whatsapp.net"}},
	}
	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Equal(t, "15551234567@s.whatsapp.net", got.Attrs[0].Value)
}

func TestEncodeDecodeNodeDigitAndHexStrings(t *testing.T) {
	n := &Node{
		Tag:   "iq",
		Attrs: []NodeAttr{{Key: "id", Value: "123456789"}, {Key: "hash", Value: "deadbeef"}},
	}
	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Equal(t, "123456789", got.Attrs[0].Value)
	assert.Equal(t, "deadbeef", got.Attrs[1].Value)
}

func TestEncodeDecodeNodeLargeChildList(t *testing.T) {
	children := make([]*Node, 300)
	for i := range children {
		children[i] = &Node{Tag: "item", Attrs: []NodeAttr{{Key: "index", Value: "x"}}}
	}
	n := &Node{Tag: "items", Children: children}
	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Len(t, got.Children, 300)
}

func TestEncodeDecodeNodeLargeBinaryPayload(t *testing.T) {
	payload := make([]byte, 70000)
	for i := range payload {
		payload[i] = byte(i)
	}
	n := &Node{Tag: "media", Bytes: payload}
	wire := EncodeNode(n)
	got, err := DecodeNode(wire)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Bytes)
}

func TestDecodeNodeRejectsUnrecognisedMarkerByte(t *testing.T) {
	_, err := DecodeNode([]byte{0x01})
	require.Error(t, err)
	var tagErr *InvalidTagError
	assert.ErrorAs(t, err, &tagErr)
	assert.Equal(t, byte(0x01), tagErr.Byte)
}

func TestDecodeStringRejectsEmptyDictionarySlot(t *testing.T) {
	// index 1 is a reserved blank slot in tagDictionary
	_, err := decodeString(bytes.NewReader([]byte{0x01}))
	require.Error(t, err)
	var tagErr *InvalidTagError
	assert.ErrorAs(t, err, &tagErr)
}

func TestNodeAttrLookup(t *testing.T) {
	n := &Node{Attrs: []NodeAttr{{Key: "type", Value: "text"}}}

	v, ok := n.Attr("type")
	assert.True(t, ok)
	assert.Equal(t, "text", v)

	_, ok = n.Attr("missing")
	assert.False(t, ok)

	_, err := n.RequireAttr("missing")
	require.Error(t, err)
	var missing *NodeAttributeMissingError
	assert.ErrorAs(t, err, &missing)
}
