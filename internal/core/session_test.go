package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingSessionPopulatesKeysAndClientID(t *testing.T) {
	st, err := NewPendingSession()
	require.NoError(t, err)
	require.NotNil(t, st.PendingNew)
	assert.Nil(t, st.PendingPersistent)
	assert.Nil(t, st.Established)
	assert.NotEqual(t, [32]byte{}, st.PendingNew.PublicKey)
	assert.NotEqual(t, [8]byte{}, st.PendingNew.ClientID)
}

func TestNewPendingSessionGeneratesDistinctKeypairs(t *testing.T) {
	a, err := NewPendingSession()
	require.NoError(t, err)
	b, err := NewPendingSession()
	require.NoError(t, err)
	assert.NotEqual(t, a.PendingNew.PrivateKey, b.PendingNew.PrivateKey)
	assert.NotEqual(t, a.PendingNew.ClientID, b.PendingNew.ClientID)
}

func TestNewPendingPersistentSessionWraps(t *testing.T) {
	sess := PersistentSession{ClientToken: "ct", ServerToken: "st", ClientID: [8]byte{1, 2, 3}}
	st := NewPendingPersistentSession(sess)
	require.NotNil(t, st.PendingPersistent)
	assert.Nil(t, st.PendingNew)
	assert.Nil(t, st.Established)
	assert.Equal(t, sess, st.PendingPersistent.Session)
}

func TestEstablishedSessionOnlyReturnsTrueWhenEstablished(t *testing.T) {
	pending, err := NewPendingSession()
	require.NoError(t, err)
	_, ok := pending.EstablishedSession()
	assert.False(t, ok)

	sess := PersistentSession{ClientToken: "ct"}
	established := SessionState{Established: &EstablishedState{Session: sess}}
	got, ok := established.EstablishedSession()
	assert.True(t, ok)
	assert.Equal(t, sess, got)
}

func TestClientIDAcrossVariants(t *testing.T) {
	pending, err := NewPendingSession()
	require.NoError(t, err)
	assert.Equal(t, pending.PendingNew.ClientID, pending.ClientID())

	sess := PersistentSession{ClientID: [8]byte{9, 9, 9}}
	takeover := NewPendingPersistentSession(sess)
	assert.Equal(t, sess.ClientID, takeover.ClientID())

	established := SessionState{Established: &EstablishedState{Session: sess}}
	assert.Equal(t, sess.ClientID, established.ClientID())

	assert.Equal(t, [8]byte{}, SessionState{}.ClientID())
}
