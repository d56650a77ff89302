// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"encoding/base64"
	"encoding/json"
)

// Builders for the JSON side of the protocol. Every builder returns a
// value ready for json.Marshal; the connection engine stamps the tag
// on when it frames the request.

func buildInitRequest(clientID [8]byte) []interface{} {
	return []interface{}{
		"admin",
		"init",
		[]int{0, 4, 2080},
		[]string{"wacore-go", "wacore"},
		base64.StdEncoding.EncodeToString(clientID[:]),
		true,
	}
}

func buildTakeoverRequest(sess PersistentSession) []interface{} {
	return []interface{}{
		"admin",
		"login",
		sess.ClientToken,
		sess.ServerToken,
		base64.StdEncoding.EncodeToString(sess.ClientID[:]),
		"takeover",
	}
}

func buildChallengeResponse(sig [32]byte) []interface{} {
	return []interface{}{
		"admin",
		"challenge",
		base64.StdEncoding.EncodeToString(sig[:]),
	}
}

func buildFileUploadRequest(hash []byte, mediaType MediaType) map[string]interface{} {
	return map[string]interface{}{
		"query": "encryptedUpload",
		"hash":  base64.StdEncoding.EncodeToString(hash),
		"type":  mediaTypeWireName(mediaType),
	}
}

func buildMediaConnRequest() map[string]interface{} {
	return map[string]interface{}{"query": "mediaConn"}
}

func buildProfilePictureRequest(jid Jid) map[string]interface{} {
	return map[string]interface{}{"query": "profilePicture", "jid": jid.String()}
}

func buildProfileStatusRequest(jid Jid) map[string]interface{} {
	return map[string]interface{}{"query": "profileStatus", "jid": jid.String()}
}

func buildGroupMetadataRequest(jid Jid) map[string]interface{} {
	return map[string]interface{}{"query": "groupMetadata", "jid": jid.String()}
}

func buildPresenceSubscribe(jid Jid) []interface{} {
	return []interface{}{"action", "presence", "subscribe", jid.String()}
}

func mediaTypeWireName(m MediaType) string {
	switch m {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaDocument:
		return "document"
	default:
		return "document"
	}
}

// parseInitResponse extracts the `ref` token from a new-session init
// response shaped ["Conn", ..., {"ref": "R"}] (scenario 1).
func parseInitResponse(raw json.RawMessage) (string, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return "", err
	}
	for i := len(arr) - 1; i >= 0; i-- {
		var obj map[string]interface{}
		if err := json.Unmarshal(arr[i], &obj); err != nil {
			continue
		}
		if ref, ok := obj["ref"].(string); ok {
			return ref, nil
		}
	}
	return "", &JsonFieldMissingError{Name: "ref"}
}

// responseStatus is the low-level ack/status shape: {"status":200,"t":...}.
type responseStatus struct {
	Status int   `json:"status"`
	Time   int64 `json:"t"`
}

func parseResponseStatus(raw json.RawMessage) (responseStatus, error) {
	var s responseStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return responseStatus{}, err
	}
	return s, nil
}

// fileUploadResponse carries the URL the server assigned an upload.
type fileUploadResponse struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

func parseFileUploadResponse(raw json.RawMessage) (fileUploadResponse, error) {
	var r fileUploadResponse
	err := json.Unmarshal(raw, &r)
	return r, err
}

// mediaConnResponse carries the ephemeral upload/download host list.
type mediaConnResponse struct {
	Auth  string `json:"auth"`
	TTL   int64  `json:"ttl"`
	Hosts []string
}

func parseMediaConnResponse(raw json.RawMessage) (mediaConnResponse, error) {
	var wire struct {
		MediaConn struct {
			Auth  string `json:"auth"`
			TTL   int64  `json:"ttl"`
			Hosts []struct {
				Hostname string `json:"hostname"`
			} `json:"hosts"`
		} `json:"media_conn"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return mediaConnResponse{}, err
	}
	hosts := make([]string, 0, len(wire.MediaConn.Hosts))
	for _, h := range wire.MediaConn.Hosts {
		hosts = append(hosts, h.Hostname)
	}
	return mediaConnResponse{Auth: wire.MediaConn.Auth, TTL: wire.MediaConn.TTL, Hosts: hosts}, nil
}

func parseProfilePictureResponse(raw json.RawMessage) (string, error) {
	var r struct {
		EURL string `json:"eurl"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}
	return r.EURL, nil
}

func parseProfileStatusResponse(raw json.RawMessage) (string, error) {
	var r struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}
	return r.Status, nil
}

func parseGroupMetadataResponse(raw json.RawMessage) (GroupMetadata, error) {
	return parseGroupMetadataJSON(raw)
}

// groupMetadataWire is the JSON shape shared by a direct groupMetadata
// query response and the embedded "meta" object of an Introduce push.
type groupMetadataWire struct {
	Creation     int64  `json:"creation"`
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Subject      string `json:"subject"`
	SubjectOwner string `json:"subjectOwner"`
	SubjectTime  int64  `json:"subjectTime"`
	Participants []struct {
		Jid   string `json:"id"`
		Admin bool   `json:"isAdmin"`
	} `json:"participants"`
}

func parseGroupMetadataJSON(raw json.RawMessage) (GroupMetadata, error) {
	var wire groupMetadataWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return GroupMetadata{}, err
	}
	return groupMetadataFromWire(wire)
}

func groupMetadataFromWire(wire groupMetadataWire) (GroupMetadata, error) {
	id, err := ParseJid(wire.ID)
	if err != nil {
		return GroupMetadata{}, err
	}
	meta := GroupMetadata{
		CreationTime: wire.Creation,
		ID:           id,
		Subject:      wire.Subject,
		SubjectTime:  wire.SubjectTime,
	}
	if wire.Owner != "" {
		if owner, err := ParseJid(wire.Owner); err == nil {
			meta.Owner = &owner
		}
	}
	if wire.SubjectOwner != "" {
		if so, err := ParseJid(wire.SubjectOwner); err == nil {
			meta.SubjectOwner = so
		}
	}
	meta.Participants = make([]GroupParticipant, 0, len(wire.Participants))
	for _, p := range wire.Participants {
		jid, err := ParseJid(p.Jid)
		if err != nil {
			continue
		}
		meta.Participants = append(meta.Participants, GroupParticipant{Jid: jid, IsAdmin: p.Admin})
	}
	return meta, nil
}

// ServerMessageKind discriminates the spontaneous server messages the
// engine may receive outside of the callback table.
type ServerMessageKind int

const (
	ServerMessageConnectionAck ServerMessageKind = iota
	ServerMessageChallenge
	ServerMessageDisconnect
	ServerMessagePresenceChange
	ServerMessageAck
	ServerMessageAcks
	ServerMessageGroupIntroduce
	ServerMessageGroupParticipantsChange
	ServerMessageStatusChange
	ServerMessagePictureChange
	ServerMessageGroupSubjectChange
)

// ServerMessage is a spontaneous, tag-less message the server pushes.
type ServerMessage struct {
	Kind ServerMessageKind

	// ConnectionAck
	UserJid     Jid
	ClientToken string
	ServerToken string
	Secret      []byte // present only for new sessions

	// Challenge
	Challenge []byte

	// Disconnect
	DisconnectKind string // "replaced" when present, empty otherwise

	// PresenceChange
	PresenceJid  Jid
	Presence     PresenceStatus
	PresenceTime int64

	// Ack / Acks. Side resolution needs own_jid, which this parser
	// doesn't have access to, so these carry the raw wire fields;
	// fromServerMessage (event.go) turns them into MessageAck values.
	AckID          MessageId   // Ack
	AckIDs         []MessageId // Acks
	AckLevel       MessageAckLevel
	AckTime        int64
	AckSender      Jid
	AckReceiver    Jid
	AckParticipant *Jid

	// Group events
	GroupJid        Jid
	GroupNewlyCreat bool
	GroupMeta       *GroupMetadata
	Inducer         *Jid
	ParticipantsChg GroupParticipantsChange
	Participants    []Jid
	Subject         string
	SubjectTime     int64

	// Status/Picture changes
	StatusJid   Jid
	Status      string
	PictureJid  Jid
	PictureGone bool
}

// parseServerMessage recognises the handful of spontaneous message
// shapes the engine must react to outside the callback table:
// ["Disconnect", reason?], ["Cmd", {"type":"challenge","challenge":b64}],
// and a ConnectionAck object. Anything else returns nil, nil so the
// caller logs-and-swallows per the error-handling policy.
func parseServerMessage(raw json.RawMessage) (*ServerMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		var head string
		if err := json.Unmarshal(arr[0], &head); err == nil {
			switch head {
			case "Disconnect":
				reason := ""
				if len(arr) > 1 {
					json.Unmarshal(arr[1], &reason)
				}
				return &ServerMessage{Kind: ServerMessageDisconnect, DisconnectKind: reason}, nil
			case "Cmd":
				if len(arr) < 2 {
					return nil, nil
				}
				var cmd struct {
					Type      string `json:"type"`
					Challenge string `json:"challenge"`
				}
				if err := json.Unmarshal(arr[1], &cmd); err != nil {
					return nil, nil
				}
				if cmd.Type == "challenge" {
					challenge, err := base64.StdEncoding.DecodeString(cmd.Challenge)
					if err != nil {
						return nil, nil
					}
					return &ServerMessage{Kind: ServerMessageChallenge, Challenge: challenge}, nil
				}
				return nil, nil
			case "Presence":
				if len(arr) < 2 {
					return nil, nil
				}
				var p struct {
					Jid  string `json:"jid"`
					Type string `json:"type"`
					Time int64  `json:"t"`
				}
				if err := json.Unmarshal(arr[1], &p); err != nil {
					return nil, nil
				}
				jid, err := ParseJid(p.Jid)
				if err != nil {
					return nil, nil
				}
				return &ServerMessage{
					Kind: ServerMessagePresenceChange, PresenceJid: jid,
					Presence: parsePresenceStatus(p.Type), PresenceTime: p.Time,
				}, nil
			case "Ack", "Acks":
				var a struct {
					ID          string   `json:"id"`
					IDs         []string `json:"ids"`
					Level       int      `json:"level"`
					Sender      string   `json:"sender"`
					Receiver    string   `json:"receiver"`
					Participant string   `json:"participant"`
					Time        int64    `json:"t"`
				}
				if len(arr) < 2 {
					return nil, nil
				}
				if err := json.Unmarshal(arr[1], &a); err != nil {
					return nil, nil
				}
				sender, err := ParseJid(a.Sender)
				if err != nil {
					return nil, nil
				}
				receiver, err := ParseJid(a.Receiver)
				if err != nil {
					return nil, nil
				}
				var participant *Jid
				if a.Participant != "" {
					if p, err := ParseJid(a.Participant); err == nil {
						participant = &p
					}
				}
				msg := &ServerMessage{
					AckLevel: parseAckLevel(a.Level), AckSender: sender, AckReceiver: receiver,
					AckParticipant: participant, AckTime: a.Time,
				}
				if head == "Acks" {
					msg.Kind = ServerMessageAcks
					msg.AckIDs = make([]MessageId, 0, len(a.IDs))
					for _, id := range a.IDs {
						msg.AckIDs = append(msg.AckIDs, MessageId(id))
					}
				} else {
					msg.Kind = ServerMessageAck
					msg.AckID = MessageId(a.ID)
				}
				return msg, nil
			case "Introduce":
				if len(arr) < 2 {
					return nil, nil
				}
				var in struct {
					NewlyCreated bool              `json:"newlyCreated"`
					Inducer      string            `json:"inducer"`
					Meta         groupMetadataWire `json:"meta"`
				}
				if err := json.Unmarshal(arr[1], &in); err != nil {
					return nil, nil
				}
				meta, err := groupMetadataFromWire(in.Meta)
				if err != nil {
					return nil, nil
				}
				msg := &ServerMessage{Kind: ServerMessageGroupIntroduce, GroupNewlyCreat: in.NewlyCreated, GroupMeta: &meta}
				if in.Inducer != "" {
					if inducer, err := ParseJid(in.Inducer); err == nil {
						msg.Inducer = &inducer
					}
				}
				return msg, nil
			case "Participants":
				if len(arr) < 2 {
					return nil, nil
				}
				var p struct {
					Jid          string   `json:"jid"`
					Type         string   `json:"type"`
					Inducer      string   `json:"inducer"`
					Participants []string `json:"participants"`
				}
				if err := json.Unmarshal(arr[1], &p); err != nil {
					return nil, nil
				}
				jid, err := ParseJid(p.Jid)
				if err != nil {
					return nil, nil
				}
				participants := make([]Jid, 0, len(p.Participants))
				for _, ps := range p.Participants {
					if j, err := ParseJid(ps); err == nil {
						participants = append(participants, j)
					}
				}
				msg := &ServerMessage{
					Kind: ServerMessageGroupParticipantsChange, GroupJid: jid,
					ParticipantsChg: parseGroupParticipantsChange(p.Type), Participants: participants,
				}
				if p.Inducer != "" {
					if inducer, err := ParseJid(p.Inducer); err == nil {
						msg.Inducer = &inducer
					}
				}
				return msg, nil
			case "Status":
				if len(arr) < 2 {
					return nil, nil
				}
				var s struct {
					Jid    string `json:"jid"`
					Status string `json:"status"`
				}
				if err := json.Unmarshal(arr[1], &s); err != nil {
					return nil, nil
				}
				jid, err := ParseJid(s.Jid)
				if err != nil {
					return nil, nil
				}
				return &ServerMessage{Kind: ServerMessageStatusChange, StatusJid: jid, Status: s.Status}, nil
			case "Picture":
				if len(arr) < 2 {
					return nil, nil
				}
				var p struct {
					Jid     string `json:"jid"`
					Removed bool   `json:"removed"`
				}
				if err := json.Unmarshal(arr[1], &p); err != nil {
					return nil, nil
				}
				jid, err := ParseJid(p.Jid)
				if err != nil {
					return nil, nil
				}
				return &ServerMessage{Kind: ServerMessagePictureChange, PictureJid: jid, PictureGone: p.Removed}, nil
			case "Subject":
				if len(arr) < 2 {
					return nil, nil
				}
				var s struct {
					Jid     string `json:"jid"`
					Subject string `json:"subject"`
					Time    int64  `json:"t"`
					Inducer string `json:"inducer"`
				}
				if err := json.Unmarshal(arr[1], &s); err != nil {
					return nil, nil
				}
				jid, err := ParseJid(s.Jid)
				if err != nil {
					return nil, nil
				}
				msg := &ServerMessage{Kind: ServerMessageGroupSubjectChange, GroupJid: jid, Subject: s.Subject, SubjectTime: s.Time}
				if s.Inducer != "" {
					if inducer, err := ParseJid(s.Inducer); err == nil {
						msg.Inducer = &inducer
					}
				}
				return msg, nil
			}
		}
	}

	var ack struct {
		Kind        string `json:"kind"`
		UserJid     string `json:"wid"`
		ClientToken string `json:"clientToken"`
		ServerToken string `json:"serverToken"`
		Secret      string `json:"secret"`
	}
	if err := json.Unmarshal(raw, &ack); err == nil && ack.Kind == "ConnectionAck" && ack.UserJid != "" {
		jid, err := ParseJid(ack.UserJid)
		if err != nil {
			return nil, nil
		}
		msg := &ServerMessage{
			Kind:        ServerMessageConnectionAck,
			UserJid:     jid,
			ClientToken: ack.ClientToken,
			ServerToken: ack.ServerToken,
		}
		if ack.Secret != "" {
			secret, err := base64.StdEncoding.DecodeString(ack.Secret)
			if err == nil {
				msg.Secret = secret
			}
		}
		return msg, nil
	}

	return nil, nil
}

func parsePresenceStatus(s string) PresenceStatus {
	switch s {
	case "available":
		return PresenceAvailable
	case "composing":
		return PresenceTyping
	case "recording":
		return PresenceRecording
	default:
		return PresenceUnavailable
	}
}

func parseAckLevel(level int) MessageAckLevel {
	if level < int(AckPendingSend) || level > int(AckError) {
		return AckError
	}
	return MessageAckLevel(level)
}

func parseGroupParticipantsChange(s string) GroupParticipantsChange {
	switch s {
	case "remove":
		return GroupParticipantRemove
	case "promote":
		return GroupParticipantPromote
	case "demote":
		return GroupParticipantDemote
	default:
		return GroupParticipantAdd
	}
}
