// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "github.com/google/uuid"

// Event is the closed sum type the engine emits to its caller.
type Event interface {
	isEvent()
}

type WebsocketConnectedEvent struct{}

func (WebsocketConnectedEvent) isEvent() {}

// ScanCodeEvent carries the raw pairing payload string
// "ref,base64(pub),base64(client_id)"; rendering it as a QR image is
// the caller's job.
type ScanCodeEvent struct{ Payload string }

func (ScanCodeEvent) isEvent() {}

type SessionEstablishedEvent struct {
	Persistent bool
	Jid        Jid
}

func (SessionEstablishedEvent) isEvent() {}

type MessageEvent struct {
	IsNew bool
	Msg   ChatMessage
}

func (MessageEvent) isEvent() {}

type InitialContactsEvent struct{ Contacts []Contact }

func (InitialContactsEvent) isEvent() {}

type AddContactEvent struct{ Contact Contact }

func (AddContactEvent) isEvent() {}

type DeleteContactEvent struct{ Jid Jid }

func (DeleteContactEvent) isEvent() {}

type InitialChatsEvent struct{ Chats []Chat }

func (InitialChatsEvent) isEvent() {}

type ChatEvent struct {
	Jid    Jid
	Action ChatAction
}

func (ChatEvent) isEvent() {}

type PresenceChangeEvent struct {
	Jid      Jid
	Presence PresenceStatus
	Time     int64
}

func (PresenceChangeEvent) isEvent() {}

type MessageAckEvent struct{ Ack MessageAck }

func (MessageAckEvent) isEvent() {}

type ProfileStatusEvent struct {
	Jid        Jid
	Status     string
	WasRequest bool
}

func (ProfileStatusEvent) isEvent() {}

type GroupIntroduceEvent struct {
	NewlyCreated bool
	Inducer      *Jid
	Meta         GroupMetadata
}

func (GroupIntroduceEvent) isEvent() {}

// GroupMetadataEvent carries either a successful metadata fetch or the
// error from a failed one, per the GetGroupMetadata callback.
type GroupMetadataEvent struct {
	Meta GroupMetadata
	Err  error
}

func (GroupMetadataEvent) isEvent() {}

type GroupParticipantsChangeEvent struct {
	Jid          Jid
	Change       GroupParticipantsChange
	Inducer      *Jid
	Participants []Jid
}

func (GroupParticipantsChangeEvent) isEvent() {}

type GroupSubjectChangeEvent struct {
	Jid     Jid
	Subject string
	Time    int64
	Inducer *Jid
}

func (GroupSubjectChangeEvent) isEvent() {}

type PictureChangeEvent struct {
	Jid     Jid
	Removed bool
}

func (PictureChangeEvent) isEvent() {}

type ProfilePictureEvent struct {
	Jid Jid
	URL string
}

func (ProfilePictureEvent) isEvent() {}

type MessageSendFailEvent struct {
	Mid    MessageId
	Status int
}

func (MessageSendFailEvent) isEvent() {}

type MessageHistoryEvent struct {
	UUID    uuid.UUID
	History []ChatMessage
}

func (MessageHistoryEvent) isEvent() {}

type FileUploadEvent struct {
	UUID uuid.UUID
	URL  string
}

func (FileUploadEvent) isEvent() {}

type MediaConnEvent struct {
	UUID  uuid.UUID
	Auth  string
	TTL   int64
	Hosts []string
}

func (MediaConnEvent) isEvent() {}

type BatteryLevelEvent struct{ Level byte }

func (BatteryLevelEvent) isEvent() {}

// fromServerMessage lifts a spontaneous ServerMessage (everything that
// isn't a ConnectionAck/Challenge/Disconnect, which the engine itself
// consumes to drive the session state machine) into zero or more
// Events. Acks require ownJid; absent it they're dropped with a
// warning the caller logs.
func fromServerMessage(msg *ServerMessage, ownJid *Jid, warn func(string)) []Event {
	switch msg.Kind {
	case ServerMessagePresenceChange:
		return []Event{PresenceChangeEvent{Jid: msg.PresenceJid, Presence: msg.Presence, Time: msg.PresenceTime}}
	case ServerMessageAck:
		if ownJid == nil {
			warn("dropping message ack: own jid not yet known")
			return nil
		}
		ack := messageAckFromServerMessage(msg.AckID, msg.AckLevel, msg.AckSender, msg.AckReceiver, msg.AckParticipant, msg.AckTime, *ownJid)
		return []Event{MessageAckEvent{Ack: ack}}
	case ServerMessageAcks:
		if ownJid == nil {
			warn("dropping message acks: own jid not yet known")
			return nil
		}
		events := make([]Event, 0, len(msg.AckIDs))
		for _, id := range msg.AckIDs {
			ack := messageAckFromServerMessage(id, msg.AckLevel, msg.AckSender, msg.AckReceiver, msg.AckParticipant, msg.AckTime, *ownJid)
			events = append(events, MessageAckEvent{Ack: ack})
		}
		return events
	case ServerMessageGroupIntroduce:
		return []Event{GroupIntroduceEvent{NewlyCreated: msg.GroupNewlyCreat, Inducer: msg.Inducer, Meta: safeMeta(msg.GroupMeta)}}
	case ServerMessageGroupParticipantsChange:
		return []Event{GroupParticipantsChangeEvent{
			Jid: msg.GroupJid, Change: msg.ParticipantsChg, Inducer: msg.Inducer, Participants: msg.Participants,
		}}
	case ServerMessageStatusChange:
		return []Event{ProfileStatusEvent{Jid: msg.StatusJid, Status: msg.Status, WasRequest: false}}
	case ServerMessagePictureChange:
		return []Event{PictureChangeEvent{Jid: msg.PictureJid, Removed: msg.PictureGone}}
	case ServerMessageGroupSubjectChange:
		return []Event{GroupSubjectChangeEvent{Jid: msg.GroupJid, Subject: msg.Subject, Time: msg.SubjectTime, Inducer: msg.Inducer}}
	default:
		warn("unhandled spontaneous server message kind")
		return nil
	}
}

func safeMeta(m *GroupMetadata) GroupMetadata {
	if m == nil {
		return GroupMetadata{}
	}
	return *m
}

// fromAppMessage lifts a decoded AppMessage (one not claimed by a
// pending callback) into Events: initial bursts map 1:1, while
// MessagesEvents fans out per-event, treating EventTypeRelay as a
// freshly-received message and anything else (notably Set) as backlog.
func fromAppMessage(msg AppMessage, warn func(string)) []Event {
	switch msg.Kind {
	case AppMessageContacts:
		return []Event{InitialContactsEvent{Contacts: msg.Contacts}}
	case AppMessageChats:
		return []Event{InitialChatsEvent{Chats: msg.Chats}}
	case AppMessageMessagesEvents:
		isNew := msg.EventType != nil && *msg.EventType == EventTypeRelay
		events := make([]Event, 0, len(msg.Events))
		for _, ev := range msg.Events {
			switch ev.Kind {
			case AppEventMessage:
				if ev.Message != nil {
					events = append(events, MessageEvent{IsNew: isNew, Msg: *ev.Message})
				}
			case AppEventMessageAck:
				events = append(events, MessageAckEvent{Ack: ev.Ack})
			case AppEventContactDelete:
				events = append(events, DeleteContactEvent{Jid: ev.ContactJid})
			case AppEventContactAddChange:
				if ev.Contact != nil {
					events = append(events, AddContactEvent{Contact: *ev.Contact})
				}
			case AppEventChatActionKind:
				events = append(events, ChatEvent{Jid: ev.ChatJid, Action: ev.ChatAction})
			case AppEventBattery:
				events = append(events, BatteryLevelEvent{Level: ev.Battery})
			default:
				warn("unhandled app event kind in MessagesEvents batch")
			}
		}
		return events
	default:
		warn("unhandled app message kind")
		return nil
	}
}
