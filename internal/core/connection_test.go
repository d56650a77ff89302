package core

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionNewQueuesInitRequestAndEmitsConnected(t *testing.T) {
	conn, events, err := NewConnectionNew(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, WebsocketConnectedEvent{}, events[0])

	frames := conn.TakeOutboundFrames()
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), `"admin","init"`)
}

func TestScanCodeEventCarriesRefAndKeys(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	text := `1,["Conn",{"ref":"R3F"}]`
	events, err := conn.PollTextFrame(text, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)

	scan, ok := events[0].(ScanCodeEvent)
	require.True(t, ok)

	parts := splitPayload(scan.Payload)
	require.Len(t, parts, 3)
	assert.Equal(t, "R3F", parts[0])

	pub, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, pub, 32)

	cid, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, cid, 8)
}

func splitPayload(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func establishedConnectionForTest(t *testing.T) *Connection {
	t.Helper()
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	ackJSON := fmt.Sprintf(`{"kind":"ConnectionAck","wid":"15551234567@c.us","clientToken":"ctok","serverToken":"stok","secret":"%s"}`,
		base64.StdEncoding.EncodeToString(fakeServerSecret(t, conn)))
	events, err := conn.PollTextFrame("2,"+ackJSON, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	_, ok := events[0].(SessionEstablishedEvent)
	require.True(t, ok)
	return conn
}

// fakeServerSecret builds a server secret blob calculateSecretKeys can
// actually unwrap for conn's pending ephemeral key, so tests can drive a
// full ConnectionAck without the real server.
func fakeServerSecret(t *testing.T, conn *Connection) []byte {
	t.Helper()
	pub := conn.state.PendingNew.PublicKey

	_, serverPub, err := generateKeypair()
	require.NoError(t, err)

	shared, err := hkdfSharedForTest(conn.state.PendingNew.PrivateKey, serverPub)
	require.NoError(t, err)
	expanded, err := hkdfExpand(shared, 80)
	require.NoError(t, err)

	plaintext := make([]byte, 80)
	copy(plaintext[0:32], pub[:])
	copy(plaintext[32:64], []byte("fixedkeyfixedkeyfixedkeyfixedkey"))

	ciphertext := cbcEncryptForTest(t, expanded[0:32], expanded[64:80], plaintext)
	hmacKey := expanded[32:64]
	tag := hmacSum(hmacKey, append(append([]byte{}, serverPub[:]...), ciphertext...))

	return append(append(append([]byte{}, serverPub[:]...), tag...), ciphertext...)
}

func TestProcessAckCallbackResolvesToMessageAckEvent(t *testing.T) {
	conn := establishedConnectionForTest(t)

	jid := Jid{ID: "15557654321"}
	msg := ChatMessage{
		Direction: Direction{SendingTo: &jid},
		ID:        "3EB000000000000000000001",
		Content:   ChatMessageContent{Kind: ContentText, Text: "hi"},
	}
	err := conn.Submit(SendMessageRequest{Message: msg})
	require.NoError(t, err)

	frames := conn.TakeOutboundFrames()
	require.Len(t, frames, 1)

	ackJSON := []byte(`{"status":200,"t":12345}`)
	tagFrame := string(msg.ID) + "," + string(ackJSON)
	events, err := conn.PollTextFrame(tagFrame, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ackEv, ok := events[0].(MessageAckEvent)
	require.True(t, ok)
	assert.Equal(t, AckSent, ackEv.Ack.Level)
	assert.Equal(t, msg.ID, ackEv.Ack.ID)
}

func TestProcessAckCallbackResolvesToSendFailOnNon200(t *testing.T) {
	conn := establishedConnectionForTest(t)

	jid := Jid{ID: "15557654321"}
	msg := ChatMessage{
		Direction: Direction{SendingTo: &jid},
		ID:        "3EB000000000000000000002",
		Content:   ChatMessageContent{Kind: ContentText, Text: "hi"},
	}
	require.NoError(t, conn.Submit(SendMessageRequest{Message: msg}))
	conn.TakeOutboundFrames()

	tagFrame := string(msg.ID) + "," + `{"status":400,"t":0}`
	events, err := conn.PollTextFrame(tagFrame, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)

	fail, ok := events[0].(MessageSendFailEvent)
	require.True(t, ok)
	assert.Equal(t, 400, fail.Status)
}

func TestEmptyTagHeuristicSynthesizesPendingAck(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	longTag := "12345678901"
	events, err := conn.PollTextFrame(longTag+",", time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ack, ok := events[0].(MessageAckEvent)
	require.True(t, ok)
	assert.Equal(t, AckPendingSend, ack.Ack.Level)
	assert.Equal(t, MessageId(longTag), ack.Ack.ID)
}

func TestShortEmptyTagIsIgnored(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	events, err := conn.PollTextFrame("5,", time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDisconnectReplacedIsFatal(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	_, err = conn.PollTextFrame(`3,["Disconnect","replaced"]`, time.Now())
	require.Error(t, err)

	var discErr *DisconnectedError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, DisconnectReplaced, discErr.Reason)

	// once fatal, every further poll returns the same error
	_, err = conn.PollTextFrame("9,pong", time.Now())
	assert.Error(t, err)
}

func TestDisconnectWithoutReasonIsRemoved(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	_, err = conn.PollTextFrame(`3,["Disconnect"]`, time.Now())
	require.Error(t, err)

	var discErr *DisconnectedError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, DisconnectRemoved, discErr.Reason)
}

func TestPersistentTakeoverAnswersChallengeWithValidSignature(t *testing.T) {
	var mac [32]byte
	copy(mac[:], []byte("fedcba9876543210fedcba9876543210"))
	sess := PersistentSession{
		ClientToken: "ctok",
		ServerToken: "stok",
		ClientID:    [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		Mac:         mac,
	}

	conn, events, err := NewConnectionPersistent(nil, sess)
	require.NoError(t, err)
	require.Len(t, events, 1)
	conn.TakeOutboundFrames() // drop the takeover login frame

	challenge := []byte("random-challenge-bytes")
	encoded := base64.StdEncoding.EncodeToString(challenge)
	cmdJSON := fmt.Sprintf(`4,["Cmd",{"type":"challenge","challenge":"%s"}]`, encoded)

	_, err = conn.PollTextFrame(cmdJSON, time.Now())
	require.NoError(t, err)

	frames := conn.TakeOutboundFrames()
	require.Len(t, frames, 1)

	wantSig := signChallenge(mac, challenge)
	wantFrame := fmt.Sprintf(`,["admin","challenge","%s"]`, base64.StdEncoding.EncodeToString(wantSig[:]))
	assert.Contains(t, string(frames[0]), wantFrame)
}

func TestPollTickArmsKeepaliveAfterIdlePeriod(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	base := time.Now()
	require.NoError(t, conn.PollTick(base))
	assert.Empty(t, conn.TakeOutboundFrames())

	require.NoError(t, conn.PollTick(base.Add(pingInterval)))
	frames := conn.TakeOutboundFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, KeepaliveFrame, string(frames[0]))
}

func TestPollTickTimesOutAfterMissedPong(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	base := time.Now()
	require.NoError(t, conn.PollTick(base))
	require.NoError(t, conn.PollTick(base.Add(pingInterval)))
	conn.TakeOutboundFrames()

	err = conn.PollTick(base.Add(pingInterval + pongGracePeriod))
	assert.ErrorIs(t, err, ErrTimeout)

	// sticky: subsequent polls keep returning the same fatal error
	err = conn.PollTick(base.Add(pingInterval + pongGracePeriod + time.Second))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestInboundFrameDisarmsPendingPing(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)
	conn.TakeOutboundFrames()

	base := time.Now()
	require.NoError(t, conn.PollTick(base))
	require.NoError(t, conn.PollTick(base.Add(pingInterval)))
	conn.TakeOutboundFrames()

	_, err = conn.PollTextFrame("9,pong", base.Add(pingInterval+time.Second))
	require.NoError(t, err)

	// the grace-period deadline no longer applies; tick shouldn't time out
	err = conn.PollTick(base.Add(pingInterval + pongGracePeriod + time.Second))
	assert.NoError(t, err)
}

func TestAllocTagIsMonotonicAndUnique(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 20; i++ {
		tag := conn.allocTag()
		assert.False(t, seen[tag], "tag reused: %s", tag)
		seen[tag] = true
		assert.NotEqual(t, prev, tag)
		prev = tag
	}
}

func TestTakeCallbackConsumesAtMostOnce(t *testing.T) {
	conn, _, err := NewConnectionNew(nil)
	require.NoError(t, err)

	conn.registerCallback("tag-x", NoopCallback{})

	cb, ok := conn.takeCallback("tag-x")
	require.True(t, ok)
	assert.IsType(t, NoopCallback{}, cb)

	_, ok = conn.takeCallback("tag-x")
	assert.False(t, ok, "callback should be consumed after first take")
}
