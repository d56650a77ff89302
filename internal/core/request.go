// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "github.com/google/uuid"

// Request is the closed sum type callers submit to the engine via
// Connection.Submit. Each concrete type below is a variant; apply
// performs exactly the wire-building sequence described for it.
type Request interface {
	apply(c *Connection) error
}

type MessagePlayedRequest struct {
	Mid  MessageId
	Peer Peer
}

func (r MessagePlayedRequest) apply(c *Connection) error {
	c.incrementEpoch()
	return c.sendSetAppEvent(AppEvent{Kind: AppEventMessagePlayed, PlayedMid: r.Mid, PlayedPeer: r.Peer})
}

type MessageReadRequest struct {
	Mid  MessageId
	Peer Peer
}

func (r MessageReadRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventMessageRead, ReadMid: r.Mid, ReadPeer: r.Peer})
}

type SetPresenceRequest struct {
	Presence PresenceStatus
	Jid      *Jid
}

func (r SetPresenceRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventPresenceChange, Presence: r.Presence, PresenceJid: r.Jid})
}

type SubscribePresenceRequest struct {
	Jid Jid
}

func (r SubscribePresenceRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildPresenceSubscribe(r.Jid), NoopCallback{})
	return nil
}

type SetStatusRequest struct {
	Status string
}

func (r SetStatusRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventStatusChange, Status: r.Status})
}

type SetNotifyNameRequest struct {
	Name string
}

func (r SetNotifyNameRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventNotifyChange, NotifyName: r.Name})
}

type SetProfileBlockedRequest struct {
	Jid     Jid
	Blocked bool
}

func (r SetProfileBlockedRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventBlockProfile, BlockJid: r.Jid, Unblock: !r.Blocked})
}

type ChatActionRequest struct {
	Jid    Jid
	Action ChatAction
}

func (r ChatActionRequest) apply(c *Connection) error {
	return c.sendSetAppEvent(AppEvent{Kind: AppEventChatActionKind, ChatJid: r.Jid, ChatAction: r.Action})
}

type SendMessageRequest struct {
	Message ChatMessage
}

func (r SendMessageRequest) apply(c *Connection) error {
	if !r.Message.Direction.IsSending() {
		return ErrInvalidDirection
	}
	mid := r.Message.ID
	eventType := EventTypeRelay
	amsg := AppMessage{
		Kind:      AppMessageMessagesEvents,
		EventType: &eventType,
		Events:    []AppEvent{{Kind: AppEventMessage, Message: &r.Message}},
	}
	return c.sendAppMessage(string(mid), amsg, ProcessAckCallback{Mid: mid})
}

type CreateGroupRequest struct {
	Subject      string
	Participants []Jid
}

func (r CreateGroupRequest) apply(c *Connection) error {
	return c.sendGroupCommand(GroupCommand{Kind: GroupCommandCreate, Subject: r.Subject}, r.Participants)
}

type ChangeGroupParticipantsRequest struct {
	Jid          Jid
	Change       GroupParticipantsChange
	Participants []Jid
}

func (r ChangeGroupParticipantsRequest) apply(c *Connection) error {
	return c.sendGroupCommand(GroupCommand{Kind: GroupCommandParticipantsChange, Jid: r.Jid, Change: r.Change}, r.Participants)
}

type GetMessageHistoryBeforeRequest struct {
	Jid   Jid
	Mid   MessageId
	Count uint16
	UUID  uuid.UUID
}

func (r GetMessageHistoryBeforeRequest) apply(c *Connection) error {
	msg := AppMessage{Kind: AppMessageQuery, Query: Query{
		Kind: QueryMessagesBefore, Jid: r.Jid, MessageID: string(r.Mid), Count: r.Count,
	}}
	return c.sendAppMessage("", msg, MessagesBeforeCallback{UUID: r.UUID})
}

type RequestFileUploadRequest struct {
	Hash      []byte
	MediaType MediaType
	UUID      uuid.UUID
}

func (r RequestFileUploadRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildFileUploadRequest(r.Hash, r.MediaType), FileUploadCallback{UUID: r.UUID})
	return nil
}

type RequestMediaConnRequest struct {
	UUID uuid.UUID
}

func (r RequestMediaConnRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildMediaConnRequest(), MediaConnCallback{UUID: r.UUID})
	return nil
}

type GetProfilePictureRequest struct {
	Jid Jid
}

func (r GetProfilePictureRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildProfilePictureRequest(r.Jid), ProfilePictureCallback{Jid: r.Jid})
	return nil
}

type GetProfileStatusRequest struct {
	Jid Jid
}

func (r GetProfileStatusRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildProfileStatusRequest(r.Jid), ProfileStatusCallback{Jid: r.Jid})
	return nil
}

type GetGroupMetadataRequest struct {
	Jid Jid
}

func (r GetGroupMetadataRequest) apply(c *Connection) error {
	c.sendJsonMessage(buildGroupMetadataRequest(r.Jid), GroupMetadataCallback{})
	return nil
}
