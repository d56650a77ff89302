// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "crypto/rand"

// PersistentSession is the only state this library persists to disk.
// It is only valid to save once a ConnectionAck has succeeded.
type PersistentSession struct {
	ClientToken string  `json:"client_token"`
	ServerToken string  `json:"server_token"`
	ClientID    [8]byte `json:"client_id"`
	Enc         [32]byte `json:"enc"`
	Mac         [32]byte `json:"mac"`
}

// SessionState is the tagged variant tracking how far the connection
// has progressed toward Established. Exactly one of the three pointer
// fields is non-nil at any time.
type SessionState struct {
	PendingNew        *PendingNewState
	PendingPersistent *PendingPersistentState
	Established       *EstablishedState
}

// PendingNewState holds the ephemeral keypair generated for a fresh
// pairing, before the server has acknowledged the connection.
type PendingNewState struct {
	PrivateKey [32]byte
	PublicKey  [32]byte
	ClientID   [8]byte
}

// PendingPersistentState holds a restored session awaiting the
// takeover handshake to complete.
type PendingPersistentState struct {
	Session PersistentSession
}

// EstablishedState holds the final derived keys used for all binary
// traffic for the lifetime of the connection.
type EstablishedState struct {
	Session PersistentSession
}

// NewPendingSession generates a fresh ephemeral keypair and client id
// for a brand-new pairing attempt.
func NewPendingSession() (SessionState, error) {
	var clientID [8]byte
	if _, err := rand.Read(clientID[:]); err != nil {
		return SessionState{}, err
	}
	priv, pub, err := generateKeypair()
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{PendingNew: &PendingNewState{
		PrivateKey: priv,
		PublicKey:  pub,
		ClientID:   clientID,
	}}, nil
}

// NewPendingPersistentSession wraps a restored PersistentSession as a
// pending-takeover state.
func NewPendingPersistentSession(sess PersistentSession) SessionState {
	return SessionState{PendingPersistent: &PendingPersistentState{Session: sess}}
}

// Established reports whether the state has reached Established and,
// if so, returns the session it carries.
func (s SessionState) EstablishedSession() (PersistentSession, bool) {
	if s.Established == nil {
		return PersistentSession{}, false
	}
	return s.Established.Session, true
}

// ClientID returns the client id for the current state regardless of
// which variant it's in.
func (s SessionState) ClientID() [8]byte {
	switch {
	case s.PendingNew != nil:
		return s.PendingNew.ClientID
	case s.PendingPersistent != nil:
		return s.PendingPersistent.Session.ClientID
	case s.Established != nil:
		return s.Established.Session.ClientID
	default:
		return [8]byte{}
	}
}
