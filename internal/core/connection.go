// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pingInterval    = 13 * time.Second
	pongGracePeriod = 3 * time.Second
)

// CallbackKind is the closed variant describing what a pending outbound
// tag expects back. The engine dispatches on this rather than exposing
// polymorphic per-caller handlers.
type CallbackKind interface {
	isCallback()
}

type loginNewCallback struct{}

func (loginNewCallback) isCallback() {}

type loginPersistentCallback struct{}

func (loginPersistentCallback) isCallback() {}

// NoopCallback discards whatever comes back on its tag; used for
// fire-and-forget requests (presence subscribe, challenge response).
type NoopCallback struct{}

func (NoopCallback) isCallback() {}

// ProcessAckCallback resolves to either a MessageAckEvent or a
// MessageSendFailEvent depending on the response status.
type ProcessAckCallback struct{ Mid MessageId }

func (ProcessAckCallback) isCallback() {}

type MessagesBeforeCallback struct{ UUID uuid.UUID }

func (MessagesBeforeCallback) isCallback() {}

type FileUploadCallback struct{ UUID uuid.UUID }

func (FileUploadCallback) isCallback() {}

type MediaConnCallback struct{ UUID uuid.UUID }

func (MediaConnCallback) isCallback() {}

type ProfilePictureCallback struct{ Jid Jid }

func (ProfilePictureCallback) isCallback() {}

type ProfileStatusCallback struct{ Jid Jid }

func (ProfileStatusCallback) isCallback() {}

type GroupMetadataCallback struct{}

func (GroupMetadataCallback) isCallback() {}

// Connection is the cooperative protocol engine. It owns no goroutines,
// sockets, or timers of its own — the session host drives it by feeding
// inbound frames to PollTextFrame/PollBinaryFrame and periodic wakeups
// to PollTick, and by handing outbound Requests to Submit. Every call
// queues the wire frames it produces; TakeOutboundFrames drains them.
type Connection struct {
	logger *zap.SugaredLogger

	state  SessionState
	ownJid *Jid

	tagCounter   uint32
	epochCounter uint32

	callbacks map[string]CallbackKind
	outbound  [][]byte

	lastInbound  time.Time
	awaitingPong bool
	fatal        error
}

// NewConnectionNew starts the engine toward a brand-new pairing: it
// generates the ephemeral keypair/client id and queues the init
// request whose response carries the QR ref (scenario 1).
func NewConnectionNew(logger *zap.SugaredLogger) (*Connection, []Event, error) {
	st, err := NewPendingSession()
	if err != nil {
		return nil, nil, err
	}
	c := newConnection(logger, st)
	c.enqueueJson(buildInitRequest(st.ClientID()), loginNewCallback{})
	return c, []Event{WebsocketConnectedEvent{}}, nil
}

// NewConnectionPersistent starts the engine toward resuming a
// previously persisted session via the takeover handshake.
func NewConnectionPersistent(logger *zap.SugaredLogger, sess PersistentSession) (*Connection, []Event, error) {
	st := NewPendingPersistentSession(sess)
	c := newConnection(logger, st)
	c.enqueueJson(buildTakeoverRequest(sess), loginPersistentCallback{})
	return c, []Event{WebsocketConnectedEvent{}}, nil
}

func newConnection(logger *zap.SugaredLogger, st SessionState) *Connection {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Connection{
		logger:    logger,
		state:     st,
		callbacks: make(map[string]CallbackKind),
	}
}

// CurrentSession exposes the Established PersistentSession, if any, so
// the session host can persist it to disk after SessionEstablishedEvent.
func (c *Connection) CurrentSession() (PersistentSession, bool) {
	return c.state.EstablishedSession()
}

// TakeOutboundFrames drains and returns every wire frame queued since
// the last call.
func (c *Connection) TakeOutboundFrames() [][]byte {
	out := c.outbound
	c.outbound = nil
	return out
}

// Submit applies a caller Request, queuing whatever wire traffic it
// produces.
func (c *Connection) Submit(req Request) error {
	return req.apply(c)
}

// PollTick drives the liveness timer. The host calls this on every
// scheduler wakeup, not only when data arrives: a 13s idle period
// arms a keepalive ping, and failing to see any inbound frame within
// 3s of that ping is a fatal timeout (§4.6).
func (c *Connection) PollTick(now time.Time) error {
	if c.fatal != nil {
		return c.fatal
	}
	if c.lastInbound.IsZero() {
		c.lastInbound = now
		return nil
	}
	if c.awaitingPong {
		if now.Sub(c.lastInbound) >= pongGracePeriod {
			c.fatal = ErrTimeout
			return ErrTimeout
		}
		return nil
	}
	if now.Sub(c.lastInbound) >= pingInterval {
		c.outbound = append(c.outbound, []byte(KeepaliveFrame))
		c.awaitingPong = true
	}
	return nil
}

// PollTextFrame processes one inbound WebSocket text frame.
func (c *Connection) PollTextFrame(data string, now time.Time) ([]Event, error) {
	if c.fatal != nil {
		return nil, c.fatal
	}
	c.markAlive(now)
	msg := DecodeTextFrame(data)
	switch msg.Kind {
	case PayloadJson:
		return c.dispatchJson(msg.Tag, msg.Json)
	case PayloadEmpty:
		if len(msg.Tag) > 10 {
			return []Event{generateEmptyAck(msg.Tag)}, nil
		}
		return nil, nil
	case PayloadPong:
		c.logger.Debugw("pong received", "tag", msg.Tag)
		return nil, nil
	default:
		return nil, nil
	}
}

// PollBinaryFrame processes one inbound WebSocket binary frame.
// ephemeral tells the codec which of the two binary shapes the caller
// observed (see frame.go's open-question note); either shape decrypts
// identically once the tag/ciphertext split is known.
func (c *Connection) PollBinaryFrame(data []byte, ephemeral bool, now time.Time) ([]Event, error) {
	if c.fatal != nil {
		return nil, c.fatal
	}
	c.markAlive(now)
	msg := DecodeBinaryFrame(data, ephemeral)

	sess, ok := c.state.EstablishedSession()
	if !ok {
		return nil, ErrInvalidSessionState
	}
	plaintext, err := verifyAndDecryptMessage(sess.Enc, sess.Mac, msg.Binary)
	if err != nil {
		return nil, err
	}
	node, err := DecodeNode(plaintext)
	if err != nil {
		return nil, err
	}

	if cb, ok := c.takeCallback(msg.Tag); ok {
		return c.dispatchNodeCallback(cb, node)
	}

	amsg, err := liftAppMessage(node)
	if err != nil {
		c.logger.Warnw("dropping unrecognised app node", "tag", node.Tag, "error", err)
		return nil, nil
	}
	return fromAppMessage(amsg, c.warn), nil
}

func (c *Connection) markAlive(now time.Time) {
	c.lastInbound = now
	c.awaitingPong = false
}

func (c *Connection) warn(msg string) {
	c.logger.Warnw(msg)
}

// dispatchJson routes an inbound JSON frame either to the callback
// that owns its tag or, for tagless pushes, to the spontaneous
// server-message path.
func (c *Connection) dispatchJson(tag string, raw json.RawMessage) ([]Event, error) {
	if cb, ok := c.takeCallback(tag); ok {
		return c.dispatchJsonCallback(cb, raw)
	}
	return c.handleSpontaneous(raw)
}

func (c *Connection) handleSpontaneous(raw json.RawMessage) ([]Event, error) {
	msg, err := parseServerMessage(raw)
	if err != nil {
		c.logger.Warnw("malformed spontaneous server message", "error", err)
		return nil, nil
	}
	if msg == nil {
		return nil, nil
	}
	switch msg.Kind {
	case ServerMessageConnectionAck:
		return c.handleConnectionAck(*msg)
	case ServerMessageChallenge:
		return nil, c.handleChallenge(msg.Challenge)
	case ServerMessageDisconnect:
		reason := DisconnectRemoved
		if msg.DisconnectKind == "replaced" {
			reason = DisconnectReplaced
		}
		c.fatal = &DisconnectedError{Reason: reason}
		return nil, c.fatal
	default:
		return fromServerMessage(msg, c.ownJid, c.warn), nil
	}
}

func (c *Connection) handleConnectionAck(msg ServerMessage) ([]Event, error) {
	switch {
	case c.state.PendingNew != nil:
		priv := c.state.PendingNew.PrivateKey
		enc, mac, err := calculateSecretKeys(msg.Secret, priv)
		if err != nil {
			return nil, err
		}
		sess := PersistentSession{
			ClientToken: msg.ClientToken,
			ServerToken: msg.ServerToken,
			ClientID:    c.state.PendingNew.ClientID,
			Enc:         enc,
			Mac:         mac,
		}
		c.state = SessionState{Established: &EstablishedState{Session: sess}}
		jid := msg.UserJid
		c.ownJid = &jid
		return []Event{SessionEstablishedEvent{Persistent: false, Jid: jid}}, nil

	case c.state.PendingPersistent != nil:
		sess := c.state.PendingPersistent.Session
		sess.ClientToken = msg.ClientToken
		sess.ServerToken = msg.ServerToken
		c.state = SessionState{Established: &EstablishedState{Session: sess}}
		jid := msg.UserJid
		c.ownJid = &jid
		return []Event{SessionEstablishedEvent{Persistent: true, Jid: jid}}, nil

	case c.state.Established != nil:
		sess := c.state.Established.Session
		sess.ClientToken = msg.ClientToken
		sess.ServerToken = msg.ServerToken
		c.state.Established.Session = sess
		jid := msg.UserJid
		c.ownJid = &jid
		return []Event{SessionEstablishedEvent{Persistent: true, Jid: jid}}, nil

	default:
		return nil, ErrInvalidSessionState
	}
}

// handleChallenge answers a reconnect challenge by signing it with
// whatever mac key the current state already carries (scenario 6).
func (c *Connection) handleChallenge(challenge []byte) error {
	var mac [32]byte
	switch {
	case c.state.PendingPersistent != nil:
		mac = c.state.PendingPersistent.Session.Mac
	case c.state.Established != nil:
		mac = c.state.Established.Session.Mac
	default:
		return ErrInvalidSessionState
	}
	sig := signChallenge(mac, challenge)
	c.enqueueJson(buildChallengeResponse(sig), NoopCallback{})
	return nil
}

func generateEmptyAck(tag string) Event {
	return MessageAckEvent{Ack: MessageAck{Level: AckPendingSend, ID: MessageId(tag)}}
}

// dispatchJsonCallback resolves a JSON response against the callback
// that was waiting on its tag.
func (c *Connection) dispatchJsonCallback(cb CallbackKind, raw json.RawMessage) ([]Event, error) {
	switch k := cb.(type) {
	case loginNewCallback:
		ref, err := parseInitResponse(raw)
		if err != nil {
			return nil, err
		}
		return []Event{ScanCodeEvent{Payload: buildScanPayload(ref, c.state)}}, nil

	case loginPersistentCallback:
		status, err := parseResponseStatus(raw)
		if err != nil {
			return nil, err
		}
		if status.Status != 200 {
			return nil, &StatusCodeError{Code: status.Status}
		}
		return nil, nil

	case NoopCallback:
		return nil, nil

	case ProcessAckCallback:
		status, err := parseResponseStatus(raw)
		if err != nil {
			return nil, err
		}
		if status.Status != 200 {
			return []Event{MessageSendFailEvent{Mid: k.Mid, Status: status.Status}}, nil
		}
		return []Event{MessageAckEvent{Ack: MessageAck{Level: AckSent, Time: status.Time, ID: k.Mid}}}, nil

	case MessagesBeforeCallback:
		return []Event{MessageHistoryEvent{UUID: k.UUID}}, nil

	case FileUploadCallback:
		resp, err := parseFileUploadResponse(raw)
		if err != nil {
			return nil, err
		}
		return []Event{FileUploadEvent{UUID: k.UUID, URL: resp.URL}}, nil

	case MediaConnCallback:
		resp, err := parseMediaConnResponse(raw)
		if err != nil {
			return nil, err
		}
		return []Event{MediaConnEvent{UUID: k.UUID, Auth: resp.Auth, TTL: resp.TTL, Hosts: resp.Hosts}}, nil

	case ProfilePictureCallback:
		url, err := parseProfilePictureResponse(raw)
		if err != nil {
			return nil, err
		}
		return []Event{ProfilePictureEvent{Jid: k.Jid, URL: url}}, nil

	case ProfileStatusCallback:
		status, err := parseProfileStatusResponse(raw)
		if err != nil {
			return nil, err
		}
		return []Event{ProfileStatusEvent{Jid: k.Jid, Status: status, WasRequest: true}}, nil

	case GroupMetadataCallback:
		meta, err := parseGroupMetadataResponse(raw)
		if err != nil {
			return []Event{GroupMetadataEvent{Err: err}}, nil
		}
		return []Event{GroupMetadataEvent{Meta: meta}}, nil

	default:
		c.logger.Warnw("unhandled json callback kind")
		return nil, nil
	}
}

// dispatchNodeCallback resolves a decrypted Node response against its
// callback. Most request kinds expecting a Node reply are ack-style
// exchanges whose payload the caller reads off the node's own attrs;
// this covers the kinds that plausibly arrive this way rather than as
// a JSON status object.
func (c *Connection) dispatchNodeCallback(cb CallbackKind, node *Node) ([]Event, error) {
	switch k := cb.(type) {
	case ProcessAckCallback:
		if t, ok := node.Attr("type"); ok && t == "error" {
			return []Event{MessageSendFailEvent{Mid: k.Mid, Status: 500}}, nil
		}
		return []Event{MessageAckEvent{Ack: MessageAck{Level: AckSent, ID: k.Mid}}}, nil
	case NoopCallback:
		return nil, nil
	default:
		c.logger.Warnw("unhandled node callback kind", "tag", node.Tag)
		return nil, nil
	}
}

// --- helpers request.go relies on ---

func (c *Connection) incrementEpoch() {
	c.epochCounter++
}

func (c *Connection) allocTag() string {
	c.tagCounter++
	return formatTag(c.tagCounter)
}

func (c *Connection) registerCallback(tag string, cb CallbackKind) {
	c.callbacks[tag] = cb
}

func (c *Connection) takeCallback(tag string) (CallbackKind, bool) {
	cb, ok := c.callbacks[tag]
	if ok {
		delete(c.callbacks, tag)
	}
	return cb, ok
}

func (c *Connection) enqueueJson(payload interface{}, cb CallbackKind) {
	tag := c.allocTag()
	c.registerCallback(tag, cb)
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Errorw("failed to marshal outbound json", "error", err)
		return
	}
	c.outbound = append(c.outbound, []byte(EncodeTextFrame(tag, body)))
}

func (c *Connection) sendJsonMessage(payload interface{}, cb CallbackKind) {
	c.enqueueJson(payload, cb)
}

func (c *Connection) sendSetAppEvent(ev AppEvent) error {
	eventType := EventTypeSet
	amsg := AppMessage{Kind: AppMessageMessagesEvents, EventType: &eventType, Events: []AppEvent{ev}}
	return c.sendAppMessage("", amsg, NoopCallback{})
}

func (c *Connection) sendAppMessage(tagHint string, amsg AppMessage, cb CallbackKind) error {
	sess, ok := c.state.EstablishedSession()
	if !ok {
		return ErrInvalidSessionState
	}
	tag := tagHint
	if tag == "" {
		tag = c.allocTag()
	}
	c.registerCallback(tag, cb)

	c.epochCounter++
	node := lowerAppMessage(amsg)
	node.Attrs = append(node.Attrs, NodeAttr{Key: "epoch", Value: formatTag(c.epochCounter)})
	plaintext := EncodeNode(node)
	ciphertext, err := signAndEncryptMessage(sess.Enc, sess.Mac, plaintext)
	if err != nil {
		return err
	}
	c.outbound = append(c.outbound, EncodeBinaryFrame(tag, ciphertext))
	return nil
}

func (c *Connection) sendGroupCommand(cmd GroupCommand, participants []Jid) error {
	if err := c.sendSetAppEvent(AppEvent{Kind: AppEventGroupCommand, Command: cmd}); err != nil {
		return err
	}
	if len(participants) == 0 {
		return nil
	}
	jids := make([]interface{}, 0, len(participants))
	for _, p := range participants {
		jids = append(jids, p.String())
	}
	c.sendJsonMessage(jids, NoopCallback{})
	return nil
}

// buildScanPayload assembles the pairing string a QR renderer displays,
// "ref,base64(pub),base64(client_id)" (scenario 1).
func buildScanPayload(ref string, st SessionState) string {
	if st.PendingNew == nil {
		return ref
	}
	pub := st.PendingNew.PublicKey
	cid := st.PendingNew.ClientID
	return ref + "," + base64.StdEncoding.EncodeToString(pub[:]) + "," + base64.StdEncoding.EncodeToString(cid[:])
}
