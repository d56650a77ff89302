package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTextFrameJson(t *testing.T) {
	msg := DecodeTextFrame(`5,["Conn",{"ref":"R"}]`)
	assert.Equal(t, "5", msg.Tag)
	assert.Equal(t, PayloadJson, msg.Kind)
	assert.JSONEq(t, `["Conn",{"ref":"R"}]`, string(msg.Json))
}

func TestDecodeTextFrameEmpty(t *testing.T) {
	msg := DecodeTextFrame("12345678901,")
	assert.Equal(t, PayloadEmpty, msg.Kind)
	assert.Equal(t, "12345678901", msg.Tag)
}

func TestDecodeTextFramePong(t *testing.T) {
	msg := DecodeTextFrame("9,pong")
	assert.Equal(t, PayloadPong, msg.Kind)
}

func TestEncodeDecodeBinaryFrameRoundTrip(t *testing.T) {
	wire := EncodeBinaryFrame("42", []byte{0x01, 0x02, 0x03})
	msg := DecodeBinaryFrame(wire, false)
	assert.Equal(t, "42", msg.Tag)
	assert.Equal(t, PayloadBinarySimple, msg.Kind)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, msg.Binary)
}

func TestDecodeBinaryFrameEphemeral(t *testing.T) {
	data := append([]byte("7,"), 0x11, 0x22, 0xAA, 0xBB, 0xCC)
	msg := DecodeBinaryFrame(data, true)
	assert.Equal(t, PayloadBinaryEphemeral, msg.Kind)
	assert.Equal(t, byte(0x11), msg.Metric)
	assert.Equal(t, byte(0x22), msg.Flag)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, msg.Binary)
}

func TestKeepaliveFrameShape(t *testing.T) {
	assert.Equal(t, "?,,", KeepaliveFrame)
}
