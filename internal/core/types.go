// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"strconv"
	"strings"
)

// Jid identifies either a group or an individual on the WhatsApp network.
type Jid struct {
	ID      string
	IsGroup bool
}

// String renders the user-facing form, @g.us for groups and @c.us
// otherwise.
func (j Jid) String() string {
	if j.IsGroup {
		return j.ID + "@g.us"
	}
	return j.ID + "@c.us"
}

// MessageJid renders the form chat message protobufs expect, where
// individuals use @s.whatsapp.net instead of @c.us.
func (j Jid) MessageJid() string {
	if j.IsGroup {
		return j.ID + "@g.us"
	}
	return j.ID + "@s.whatsapp.net"
}

// Phonenumber returns the international phone number for an individual
// Jid, or false for a group or a non-numeric id (e.g. a LID or some
// other non-phone identifier).
func (j Jid) Phonenumber() (string, bool) {
	if j.IsGroup || !isAllDigits(j.ID) {
		return "", false
	}
	return "+" + j.ID, true
}

// ParseJid parses any of the @c.us/@g.us/@s.whatsapp.net/@broadcast
// suffixes. @broadcast is treated as a non-group individual, matching
// the wire behaviour this was grounded on.
func ParseJid(s string) (Jid, error) {
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return Jid{}, &JsonFieldMissingError{Name: "jid suffix"}
	}
	id, suffix := s[:at], s[at:]
	switch suffix {
	case "@c.us", "@s.whatsapp.net", "@broadcast":
		return Jid{ID: id, IsGroup: false}, nil
	case "@g.us":
		return Jid{ID: id, IsGroup: true}, nil
	default:
		return Jid{}, &InvalidPayloadError{Callback: "ParseJid", FrameKind: suffix}
	}
}

// JidFromPhonenumber builds an individual Jid from an E.164-ish phone
// number, stripping a leading +. Rejects anything with non-digits.
func JidFromPhonenumber(phonenumber string) (Jid, error) {
	phonenumber = strings.TrimPrefix(phonenumber, "+")
	for _, r := range phonenumber {
		if r < '0' || r > '9' {
			return Jid{}, &InvalidPayloadError{Callback: "JidFromPhonenumber", FrameKind: "non-digit"}
		}
	}
	return Jid{ID: phonenumber, IsGroup: false}, nil
}

// Contact is a WhatsApp address-book entry.
type Contact struct {
	Name   string // phonebook name, set by the user; empty if unset
	Notify string // push-notification name, set by the peer; empty if unset
	Jid    Jid
}

// Chat is a conversation's metadata.
type Chat struct {
	Name         string
	Jid          Jid
	LastActivity int64
	PinTime      *int64
	MuteUntil    *int64
	Spam         bool
	ReadOnly     bool
}

// PresenceStatus is the presence value a peer can report or we can set.
type PresenceStatus int

const (
	PresenceUnavailable PresenceStatus = iota
	PresenceAvailable
	PresenceTyping
	PresenceRecording
)

// GroupMetadata describes a group chat.
type GroupMetadata struct {
	CreationTime int64
	ID           Jid
	Owner        *Jid
	Participants []GroupParticipant
	Subject      string
	SubjectOwner Jid
	SubjectTime  int64
}

// GroupParticipant pairs a member Jid with whether they're an admin.
type GroupParticipant struct {
	Jid     Jid
	IsAdmin bool
}

// GroupParticipantsChange is the kind of group-roster mutation a
// ChangeGroupParticipants request performs.
type GroupParticipantsChange int

const (
	GroupParticipantAdd GroupParticipantsChange = iota
	GroupParticipantRemove
	GroupParticipantPromote
	GroupParticipantDemote
)

// ChatAction is a per-chat user action (archive, mute, pin, ...).
type ChatAction struct {
	Kind  ChatActionKind
	Until int64 // populated for Pin/Mute
}

type ChatActionKind int

const (
	ChatActionAdd ChatActionKind = iota
	ChatActionRemove
	ChatActionArchive
	ChatActionUnarchive
	ChatActionClear
	ChatActionPin
	ChatActionUnpin
	ChatActionMute
	ChatActionUnmute
	ChatActionRead
	ChatActionUnread
)

// MediaType enumerates the media kinds the crypto layer knows key
// derivation labels for.
type MediaType int

const (
	MediaImage MediaType = iota
	MediaVideo
	MediaAudio
	MediaDocument
)

func (m MediaType) label() string {
	switch m {
	case MediaImage:
		return "WhatsApp Image Keys"
	case MediaVideo:
		return "WhatsApp Video Keys"
	case MediaAudio:
		return "WhatsApp Audio Keys"
	case MediaDocument:
		return "WhatsApp Document Keys"
	default:
		return ""
	}
}

// formatTag renders a monotonic tag counter as its decimal string, the
// format every outbound tag and client id counter in this package uses.
func formatTag(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
