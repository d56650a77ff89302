package client

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/waconnect/waconnect-go/internal/core"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// SessionStatus tracks a WAClient through the pairing lifecycle.
type SessionStatus string

const (
	StatusInitializing SessionStatus = "INITIALIZING"
	StatusConnecting   SessionStatus = "CONNECTING"
	StatusQRReady       SessionStatus = "QR_READY"
	StatusReady         SessionStatus = "READY"
	StatusDisconnected SessionStatus = "DISCONNECTED"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("not connected")
)

const websocketURL = "wss://web.whatsapp.com/ws"

// tickInterval is how often the background loop wakes the engine even
// when no frame has arrived, so core.Connection.PollTick can arm and
// check the 13s/3s liveness window.
const tickInterval = 1 * time.Second

// WAClient owns exactly one goroutine driving a core.Connection against
// a real WebSocket: the engine itself stays single-threaded and pure,
// this type supplies the socket, the clock, and credential persistence
// the engine has no business knowing about.
type WAClient struct {
	ID      string
	logger  *zap.SugaredLogger
	dataDir string

	mu               sync.RWMutex
	status           SessionStatus
	ownJid           *core.Jid
	qrCode           string
	connectedAt      *time.Time
	lastActivityAt   time.Time
	messagesSent     int
	messagesReceived int

	conn   *core.Connection
	ws     *websocket.Conn
	cancel context.CancelFunc

	onQR      func(string)
	onReady   func(core.Jid)
	onEvent   func(core.Event)
}

// NewWAClient creates a client in the Initializing state; Connect must
// be called to actually dial.
func NewWAClient(sessionID string, logger *zap.SugaredLogger, dataDir string) *WAClient {
	return &WAClient{
		ID:             sessionID,
		status:         StatusInitializing,
		lastActivityAt: time.Now(),
		logger:         logger,
		dataDir:        dataDir,
	}
}

// SetOnQR registers the pairing-payload callback.
func (c *WAClient) SetOnQR(fn func(string)) { c.onQR = fn }

// SetOnReady registers the session-established callback.
func (c *WAClient) SetOnReady(fn func(core.Jid)) { c.onReady = fn }

// SetOnEvent registers a catch-all sink for every engine event, for
// callers (the webhook dispatcher) that want the full stream.
func (c *WAClient) SetOnEvent(fn func(core.Event)) { c.onEvent = fn }

// Connect dials the WebSocket, starts the engine from whatever
// credentials are on disk (or fresh, if none), and spawns the
// goroutine that keeps feeding it frames until Disconnect.
func (c *WAClient) Connect() error {
	c.mu.Lock()
	c.status = StatusConnecting
	c.mu.Unlock()

	c.logger.Infof("connecting session %s", c.ID)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	ws, _, err := websocket.Dial(ctx, websocketURL, nil)
	if err != nil {
		cancel()
		c.setStatus(StatusDisconnected)
		return err
	}
	c.ws = ws

	var conn *core.Connection
	var initial []core.Event
	if sess, ok := c.loadCredentials(); ok {
		conn, initial, err = core.NewConnectionPersistent(c.logger, sess)
	} else {
		conn, initial, err = core.NewConnectionNew(c.logger)
	}
	if err != nil {
		cancel()
		c.setStatus(StatusDisconnected)
		return err
	}
	c.conn = conn

	c.dispatchEvents(initial)
	if err := c.flushOutbound(ctx); err != nil {
		cancel()
		c.setStatus(StatusDisconnected)
		return err
	}

	go c.readLoop(ctx)
	go c.tickLoop(ctx)

	return nil
}

// Submit hands a Request to the engine and flushes whatever it queues.
func (c *WAClient) Submit(req core.Request) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Submit(req); err != nil {
		return err
	}
	return c.flushOutbound(context.Background())
}

func (c *WAClient) readLoop(ctx context.Context) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			c.logger.Infof("session %s websocket closed: %v", c.ID, err)
			c.setStatus(StatusDisconnected)
			return
		}

		var events []core.Event
		now := time.Now()
		switch typ {
		case websocket.MessageText:
			events, err = c.conn.PollTextFrame(string(data), now)
		default:
			events, err = c.conn.PollBinaryFrame(data, false, now)
		}
		if err != nil {
			c.logger.Errorf("session %s: %v", c.ID, err)
			c.setStatus(StatusDisconnected)
			return
		}

		c.mu.Lock()
		c.lastActivityAt = now
		c.messagesReceived++
		c.mu.Unlock()

		c.dispatchEvents(events)
		if err := c.flushOutbound(ctx); err != nil {
			c.logger.Errorf("session %s: failed flushing outbound frames: %v", c.ID, err)
			c.setStatus(StatusDisconnected)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *WAClient) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := c.conn.PollTick(now); err != nil {
				c.logger.Infof("session %s liveness timeout: %v", c.ID, err)
				c.setStatus(StatusDisconnected)
				c.Disconnect()
				return
			}
			if err := c.flushOutbound(ctx); err != nil {
				c.logger.Errorf("session %s: failed flushing keepalive: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *WAClient) flushOutbound(ctx context.Context) error {
	for _, frame := range c.conn.TakeOutboundFrames() {
		typ := websocket.MessageBinary
		if utf8.Valid(frame) {
			typ = websocket.MessageText
		}
		if err := c.ws.Write(ctx, typ, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *WAClient) dispatchEvents(events []core.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case core.ScanCodeEvent:
			c.mu.Lock()
			c.status = StatusQRReady
			c.qrCode = e.Payload
			c.mu.Unlock()
			if c.onQR != nil {
				c.onQR(e.Payload)
			}
		case core.SessionEstablishedEvent:
			now := time.Now()
			c.mu.Lock()
			c.status = StatusReady
			c.connectedAt = &now
			jid := e.Jid
			c.ownJid = &jid
			c.mu.Unlock()
			if sess, ok := c.currentSession(); ok {
				c.saveCredentials(sess)
			}
			if c.onReady != nil {
				c.onReady(e.Jid)
			}
		case core.MessageEvent:
			c.mu.Lock()
			c.messagesSent++
			c.mu.Unlock()
		}
		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
}

func (c *WAClient) currentSession() (core.PersistentSession, bool) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return core.PersistentSession{}, false
	}
	return conn.CurrentSession()
}

func (c *WAClient) credentialsPath() string {
	return filepath.Join(c.dataDir, c.ID, "creds.json")
}

func (c *WAClient) loadCredentials() (core.PersistentSession, bool) {
	data, err := os.ReadFile(c.credentialsPath())
	if err != nil {
		return core.PersistentSession{}, false
	}
	var sess core.PersistentSession
	if err := json.Unmarshal(data, &sess); err != nil {
		c.logger.Warnf("session %s: corrupt credentials file, starting fresh: %v", c.ID, err)
		return core.PersistentSession{}, false
	}
	return sess, true
}

func (c *WAClient) saveCredentials(sess core.PersistentSession) {
	path := c.credentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.logger.Errorf("session %s: failed to create credentials dir: %v", c.ID, err)
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		c.logger.Errorf("session %s: failed to marshal credentials: %v", c.ID, err)
		return
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		c.logger.Errorf("session %s: failed to persist credentials: %v", c.ID, err)
	}
}

func (c *WAClient) setStatus(s SessionStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Disconnect closes the WebSocket and stops the background goroutines.
func (c *WAClient) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	ws := c.ws
	c.status = StatusDisconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		ws.Close(websocket.StatusNormalClosure, "session closed")
	}
	c.logger.Infof("session %s disconnected", c.ID)
}

// GetStatus returns the current session status.
func (c *WAClient) GetStatus() SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// GetQRCode returns the current pairing payload, or "" before one has
// arrived.
func (c *WAClient) GetQRCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qrCode
}

// GetPhoneNumber returns the paired individual's phone number, if any.
func (c *WAClient) GetPhoneNumber() string {
	c.mu.RLock()
	jid := c.ownJid
	c.mu.RUnlock()
	if jid == nil {
		return ""
	}
	phone, _ := jid.Phonenumber()
	return phone
}

// GetJid returns the paired jid, if established.
func (c *WAClient) GetJid() (core.Jid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ownJid == nil {
		return core.Jid{}, false
	}
	return *c.ownJid, true
}

// GetSession returns a snapshot of session metadata.
func (c *WAClient) GetSession() SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := SessionInfo{
		ID:               c.ID,
		Status:           c.status,
		ConnectedAt:      c.connectedAt,
		LastActivityAt:   c.lastActivityAt,
		MessagesSent:     c.messagesSent,
		MessagesReceived: c.messagesReceived,
	}
	if c.ownJid != nil {
		info.Jid = c.ownJid.String()
	}
	return info
}

// SendText submits a plain-text message to a jid.
func (c *WAClient) SendText(to core.Jid, text string) (*MessageResult, error) {
	if c.GetStatus() != StatusReady {
		return nil, ErrNotConnected
	}
	mid, err := core.GenerateMessageId()
	if err != nil {
		return nil, err
	}
	msg := core.ChatMessage{
		Direction: core.Direction{SendingTo: &to},
		Time:      time.Now().Unix(),
		ID:        mid,
		Content:   core.ChatMessageContent{Kind: core.ContentText, Text: text},
	}
	if err := c.Submit(core.SendMessageRequest{Message: msg}); err != nil {
		return nil, err
	}
	return &MessageResult{MessageID: string(mid), Timestamp: time.Now()}, nil
}

// SessionInfo holds a point-in-time session snapshot.
type SessionInfo struct {
	ID               string        `json:"id"`
	Status           SessionStatus `json:"status"`
	Jid              string        `json:"jid,omitempty"`
	ConnectedAt      *time.Time    `json:"connectedAt,omitempty"`
	LastActivityAt   time.Time     `json:"lastActivityAt"`
	MessagesSent     int           `json:"messagesSent"`
	MessagesReceived int           `json:"messagesReceived"`
}

// MessageResult is the outcome of submitting an outbound message.
type MessageResult struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}
