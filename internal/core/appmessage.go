// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "strconv"

// EventType marks whether a MessagesEvents batch is freshly relayed
// traffic or backlog the server is replaying (Set).
type EventType int

const (
	EventTypeSet EventType = iota
	EventTypeRelay
)

// AppEventKind discriminates the per-event variants a MessagesEvents
// batch can carry.
type AppEventKind int

const (
	AppEventMessage AppEventKind = iota
	AppEventMessageAck
	AppEventContactDelete
	AppEventContactAddChange
	AppEventChatActionKind
	AppEventBattery
	AppEventMessagePlayed
	AppEventMessageRead
	AppEventPresenceChange
	AppEventStatusChange
	AppEventNotifyChange
	AppEventBlockProfile
	AppEventGroupCommand
)

// GroupCommandKind discriminates the two group-management operations
// CreateGroup/ChangeGroupParticipants lower into.
type GroupCommandKind int

const (
	GroupCommandCreate GroupCommandKind = iota
	GroupCommandParticipantsChange
)

// GroupCommand is the lowered form of a group-management request.
type GroupCommand struct {
	Kind    GroupCommandKind
	Subject string                   // Create
	Jid     Jid                      // ParticipantsChange target group
	Change  GroupParticipantsChange  // ParticipantsChange
}

// AppEvent is one event inside a MessagesEvents batch.
type AppEvent struct {
	Kind AppEventKind

	Message *ChatMessage // Message

	Ack MessageAck // MessageAck

	ContactJid Jid      // ContactDelete / ContactAddChange
	Contact    *Contact // ContactAddChange

	ChatJid    Jid        // ChatAction
	ChatAction ChatAction // ChatAction

	Battery byte // Battery

	PlayedMid  MessageId // MessagePlayed
	PlayedPeer Peer

	ReadMid  MessageId // MessageRead
	ReadPeer Peer

	Presence    PresenceStatus // PresenceChange
	PresenceJid *Jid           // nil means "self"

	Status string // StatusChange

	NotifyName string // NotifyChange

	BlockJid Jid  // BlockProfile
	Unblock  bool // BlockProfile

	Command GroupCommand // GroupCommand
}

// QueryKind discriminates the Query variant of AppMessage.
type QueryKind int

const (
	QueryMessagesBefore QueryKind = iota
)

// Query is a history/lookup request lowered into an AppMessage.
type Query struct {
	Kind      QueryKind
	Jid       Jid
	MessageID string
	Count     uint16
}

// AppMessageKind discriminates the top-level AppMessage sum type.
type AppMessageKind int

const (
	AppMessageContacts AppMessageKind = iota
	AppMessageChats
	AppMessageMessagesEvents
	AppMessageQuery
)

// AppMessage is the typed lift of a decoded Node's application-layer
// meaning.
type AppMessage struct {
	Kind      AppMessageKind
	Contacts  []Contact
	Chats     []Chat
	EventType *EventType // nil for MessagesEvents means backlog/unspecified
	Events    []AppEvent
	Query     Query
}

// lowerAppMessage converts an outbound AppMessage into the Node the
// connection engine encrypts and sends.
func lowerAppMessage(msg AppMessage) *Node {
	switch msg.Kind {
	case AppMessageMessagesEvents:
		node := &Node{Tag: "action"}
		if msg.EventType != nil {
			kind := "relay"
			if *msg.EventType == EventTypeSet {
				kind = "set"
			}
			node.Attrs = append(node.Attrs, NodeAttr{Key: "add", Value: kind})
		}
		children := make([]*Node, 0, len(msg.Events))
		for _, ev := range msg.Events {
			if n := lowerAppEvent(ev); n != nil {
				children = append(children, n)
			}
		}
		node.Children = children
		return node
	case AppMessageQuery:
		return lowerQuery(msg.Query)
	default:
		return &Node{Tag: "action"}
	}
}

func lowerAppEvent(ev AppEvent) *Node {
	switch ev.Kind {
	case AppEventMessage:
		attrs := []NodeAttr{}
		if ev.Message != nil {
			attrs = append(attrs, NodeAttr{Key: "id", Value: string(ev.Message.ID)})
		}
		n := &Node{Tag: "message", Attrs: attrs}
		if ev.Message != nil {
			n.Bytes = ev.Message.Content.RawPayload
		}
		return n
	case AppEventMessagePlayed:
		return &Node{Tag: "played", Attrs: []NodeAttr{
			{Key: "id", Value: string(ev.PlayedMid)},
			{Key: "to", Value: peerJid(ev.PlayedPeer).String()},
		}}
	case AppEventMessageRead:
		return &Node{Tag: "read", Attrs: []NodeAttr{
			{Key: "id", Value: string(ev.ReadMid)},
			{Key: "to", Value: peerJid(ev.ReadPeer).String()},
		}}
	case AppEventPresenceChange:
		jid := ""
		if ev.PresenceJid != nil {
			jid = ev.PresenceJid.String()
		}
		return &Node{Tag: "presence", Attrs: []NodeAttr{
			{Key: "type", Value: presenceWireName(ev.Presence)},
			{Key: "to", Value: jid},
		}}
	case AppEventStatusChange:
		return &Node{Tag: "status", Attrs: []NodeAttr{{Key: "text", Value: ev.Status}}}
	case AppEventNotifyChange:
		return &Node{Tag: "notify", Attrs: []NodeAttr{{Key: "name", Value: ev.NotifyName}}}
	case AppEventBlockProfile:
		kind := "block"
		if ev.Unblock {
			kind = "unblock"
		}
		return &Node{Tag: "block", Attrs: []NodeAttr{
			{Key: "type", Value: kind},
			{Key: "jid", Value: ev.BlockJid.String()},
		}}
	case AppEventChatActionKind:
		return &Node{Tag: "chat", Attrs: []NodeAttr{
			{Key: "jid", Value: ev.ChatJid.String()},
			{Key: "type", Value: chatActionWireName(ev.ChatAction)},
		}}
	case AppEventGroupCommand:
		return lowerGroupCommand(ev.Command)
	default:
		return nil
	}
}

func lowerGroupCommand(cmd GroupCommand) *Node {
	switch cmd.Kind {
	case GroupCommandCreate:
		return &Node{Tag: "group", Attrs: []NodeAttr{
			{Key: "type", Value: "create"},
			{Key: "subject", Value: cmd.Subject},
		}}
	case GroupCommandParticipantsChange:
		return &Node{Tag: "group", Attrs: []NodeAttr{
			{Key: "type", Value: groupParticipantsChangeWireName(cmd.Change)},
			{Key: "jid", Value: cmd.Jid.String()},
		}}
	default:
		return &Node{Tag: "group"}
	}
}

func lowerQuery(q Query) *Node {
	switch q.Kind {
	case QueryMessagesBefore:
		return &Node{Tag: "query", Attrs: []NodeAttr{
			{Key: "type", Value: "message"},
			{Key: "jid", Value: q.Jid.String()},
			{Key: "before", Value: q.MessageID},
			{Key: "count", Value: strconv.Itoa(int(q.Count))},
		}}
	default:
		return &Node{Tag: "query"}
	}
}

// liftAppMessage converts an inbound, decrypted Node that wasn't
// claimed by a pending callback into its AppMessage form, for the
// engine's event.go lifter to fan out further.
func liftAppMessage(n *Node) (AppMessage, error) {
	switch n.Tag {
	case "response":
		return liftResponseBurst(n)
	case "action":
		return liftActionBatch(n)
	case "query":
		jid, err := n.RequireAttr("jid")
		if err != nil {
			return AppMessage{}, err
		}
		parsedJid, err := ParseJid(jid)
		if err != nil {
			return AppMessage{}, err
		}
		before, _ := n.Attr("before")
		count := 0
		if c, ok := n.Attr("count"); ok {
			count, _ = strconv.Atoi(c)
		}
		return AppMessage{Kind: AppMessageQuery, Query: Query{
			Kind: QueryMessagesBefore, Jid: parsedJid, MessageID: before, Count: uint16(count),
		}}, nil
	default:
		return AppMessage{}, &NodeAttributeMissingError{Name: "tag:" + n.Tag}
	}
}

func liftResponseBurst(n *Node) (AppMessage, error) {
	kind, _ := n.Attr("type")
	switch kind {
	case "chat":
		chats := make([]Chat, 0, len(n.Children))
		for _, c := range n.Children {
			jidStr, err := c.RequireAttr("jid")
			if err != nil {
				continue
			}
			jid, err := ParseJid(jidStr)
			if err != nil {
				continue
			}
			name, _ := c.Attr("name")
			chats = append(chats, Chat{Name: name, Jid: jid})
		}
		return AppMessage{Kind: AppMessageChats, Chats: chats}, nil
	default:
		contacts := make([]Contact, 0, len(n.Children))
		for _, c := range n.Children {
			jidStr, err := c.RequireAttr("jid")
			if err != nil {
				continue
			}
			jid, err := ParseJid(jidStr)
			if err != nil {
				continue
			}
			name, _ := c.Attr("name")
			notify, _ := c.Attr("notify")
			contacts = append(contacts, Contact{Name: name, Notify: notify, Jid: jid})
		}
		return AppMessage{Kind: AppMessageContacts, Contacts: contacts}, nil
	}
}

func liftActionBatch(n *Node) (AppMessage, error) {
	var eventType *EventType
	if add, ok := n.Attr("add"); ok {
		t := EventTypeRelay
		if add == "set" {
			t = EventTypeSet
		}
		eventType = &t
	}
	events := make([]AppEvent, 0, len(n.Children))
	for _, child := range n.Children {
		ev, ok := liftAppEvent(child)
		if ok {
			events = append(events, ev)
		}
	}
	return AppMessage{Kind: AppMessageMessagesEvents, EventType: eventType, Events: events}, nil
}

func liftAppEvent(n *Node) (AppEvent, bool) {
	switch n.Tag {
	case "message":
		id, _ := n.Attr("id")
		return AppEvent{Kind: AppEventMessage, Message: &ChatMessage{
			ID:      MessageId(id),
			Content: ChatMessageContent{Kind: ContentUnimplemented, RawPayload: n.Bytes},
		}}, true
	case "received":
		id, _ := n.Attr("id")
		return AppEvent{Kind: AppEventMessageAck, Ack: MessageAck{ID: MessageId(id), Level: AckReceived}}, true
	case "battery":
		v, _ := n.Attr("value")
		n8, _ := strconv.Atoi(v)
		return AppEvent{Kind: AppEventBattery, Battery: byte(n8)}, true
	default:
		return AppEvent{}, false
	}
}

func peerJid(p Peer) Jid {
	if p.Individual != nil {
		return *p.Individual
	}
	if p.Group != nil {
		return *p.Group
	}
	return Jid{}
}

func presenceWireName(p PresenceStatus) string {
	switch p {
	case PresenceAvailable:
		return "available"
	case PresenceTyping:
		return "composing"
	case PresenceRecording:
		return "recording"
	default:
		return "unavailable"
	}
}

func chatActionWireName(a ChatAction) string {
	switch a.Kind {
	case ChatActionAdd:
		return "add"
	case ChatActionRemove:
		return "remove"
	case ChatActionArchive:
		return "archive"
	case ChatActionUnarchive:
		return "unarchive"
	case ChatActionClear:
		return "clear"
	case ChatActionPin:
		return "pin"
	case ChatActionUnpin:
		return "unpin"
	case ChatActionMute:
		return "mute"
	case ChatActionUnmute:
		return "unmute"
	case ChatActionRead:
		return "read"
	case ChatActionUnread:
		return "unread"
	default:
		return "unknown"
	}
}

func groupParticipantsChangeWireName(c GroupParticipantsChange) string {
	switch c {
	case GroupParticipantAdd:
		return "add"
	case GroupParticipantRemove:
		return "remove"
	case GroupParticipantPromote:
		return "promote"
	case GroupParticipantDemote:
		return "demote"
	default:
		return "add"
	}
}
