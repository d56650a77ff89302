// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// MessageId is the 12-byte chat message identifier: two fixed bytes
// (0x3E, 0xB0) followed by 10 random bytes, rendered as 24 uppercase
// hex characters.
type MessageId string

// GenerateMessageId produces a fresh MessageId. Each byte is rendered
// zero-padded so the result is always exactly 24 characters, matching
// the invariant tested against this library's traces (the original
// formatter did not zero-pad and could emit short ids for bytes < 0x10).
func GenerateMessageId() (MessageId, error) {
	var buf [12]byte
	buf[0] = 0x3E
	buf[1] = 0xB0
	if _, err := rand.Read(buf[2:]); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(24)
	for _, b := range buf {
		fmt.Fprintf(&sb, "%02X", b)
	}
	return MessageId(sb.String()), nil
}

// Peer is who a message is to/from: an individual, or a group plus the
// participant who sent/receives within it.
type Peer struct {
	Group       *Jid // nil for Individual
	Participant *Jid // set only alongside Group
	Individual  *Jid // set only when Group is nil
}

// IndividualPeer builds a Peer for a 1:1 chat.
func IndividualPeer(jid Jid) Peer {
	j := jid
	return Peer{Individual: &j}
}

// GroupPeer builds a Peer for a message within a group chat.
func GroupPeer(group, participant Jid) Peer {
	g, p := group, participant
	return Peer{Group: &g, Participant: &p}
}

// PeerAck is the form of Peer used for acks to messages we sent: group
// acks may cover one participant, or all of them.
type PeerAck struct {
	Individual        *Jid
	GroupParticipant  *Jid // set alongside Group
	Group             *Jid
	GroupAll          bool // true when Group is set and GroupParticipant is nil
}

// Direction says whether a ChatMessage is outbound (to a Jid) or
// inbound (from a Peer).
type Direction struct {
	SendingTo   *Jid
	ReceivingAt *Peer
}

// IsSending reports whether this direction represents an outbound
// message — the precondition SendMessage requests check.
func (d Direction) IsSending() bool {
	return d.SendingTo != nil
}

// MessageAckLevel is how far a message has progressed toward being
// read, matching the server's ack status codes.
type MessageAckLevel int

const (
	AckPendingSend MessageAckLevel = iota
	AckSent
	AckReceived
	AckRead
	AckPlayed
	AckError
)

// MessageAckSide distinguishes an ack about a message we sent (side is
// the recipient Peer) from one about a message we received (side is
// the PeerAck describing who on the sending end acked it).
type MessageAckSide struct {
	Here  *Peer
	There *PeerAck
}

// MessageAck reports delivery/read/play progress for a message.
type MessageAck struct {
	Level MessageAckLevel
	Time  int64
	ID    MessageId
	Side  MessageAckSide
}

// messageAckFromServerMessage resolves a spontaneous Ack/Acks push into
// a MessageAck: if the reported sender is us, the ack concerns a
// message we sent and its side is a PeerAck describing the recipient's
// progress; otherwise it's a message we received, and the side is a
// Peer describing who sent it.
func messageAckFromServerMessage(id MessageId, level MessageAckLevel, sender, receiver Jid, participant *Jid, t int64, ownJid Jid) MessageAck {
	var side MessageAckSide
	if sender == ownJid {
		if participant != nil {
			side = MessageAckSide{There: &PeerAck{Group: &receiver, GroupParticipant: participant}}
		} else {
			side = MessageAckSide{There: &PeerAck{Individual: &receiver}}
		}
	} else {
		if participant != nil {
			side = MessageAckSide{Here: &Peer{Group: &sender, Participant: participant}}
		} else {
			side = MessageAckSide{Here: &Peer{Individual: &sender}}
		}
	}
	return MessageAck{Level: level, Time: t, ID: id, Side: side}
}

// FileInfo describes an uploaded media blob's location and keys. The
// HTTP transfer itself is out of scope; this is the metadata a
// ChatMessageContent media variant carries.
type FileInfo struct {
	URL        string
	Mime       string
	Sha256     []byte
	EncSha256  []byte
	Size       int64
	Key        []byte
}

// ChatMessageContentKind discriminates ChatMessageContent without
// requiring the protobuf schema this library doesn't implement.
type ChatMessageContentKind int

const (
	ContentText ChatMessageContentKind = iota
	ContentImage
	ContentAudio
	ContentVideo
	ContentDocument
	ContentContact
	ContentLocation
	ContentLiveLocation
	ContentRedaction
	ContentUnimplemented
)

// ChatMessageContent is the payload of a chat message. Full protobuf
// decoding of media/contact/location submessages is the out-of-scope
// collaborator's job (§9); this type carries only what the engine
// itself needs (the text body, or an opaque RawPayload for everything
// else) plus enough shape to route requests.
type ChatMessageContent struct {
	Kind       ChatMessageContentKind
	Text       string
	File       *FileInfo
	Caption    string
	Redacts    MessageId
	RawPayload []byte // the untouched protobuf bytes, for variants this package doesn't decode
}

// QuotedChatMessage is a reply's reference to the message it quotes.
type QuotedChatMessage struct {
	Participant Jid
	Content     ChatMessageContent
}

// ChatMessage is a single chat message, in either direction.
type ChatMessage struct {
	Direction Direction
	Time      int64
	ID        MessageId
	Content   ChatMessageContent
	Quoted    *QuotedChatMessage
	StubType  string // non-empty for system/stub messages (e.g. group subject change rendered as a message)
}
