package core

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageIdPattern = regexp.MustCompile(`^3EB0[0-9A-F]{20}$`)

func TestGenerateMessageIdShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		id, err := GenerateMessageId()
		require.NoError(t, err)
		assert.Len(t, string(id), 24)
		assert.Regexp(t, messageIdPattern, string(id))
	}
}

func TestGenerateMessageIdUnique(t *testing.T) {
	seen := make(map[MessageId]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateMessageId()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate message id generated")
		seen[id] = true
	}
}

func TestIndividualPeerAndGroupPeer(t *testing.T) {
	jid := Jid{ID: "15551234567"}
	p := IndividualPeer(jid)
	require.NotNil(t, p.Individual)
	assert.Equal(t, jid, *p.Individual)
	assert.Nil(t, p.Group)
	assert.Nil(t, p.Participant)

	group := Jid{ID: "123-456", IsGroup: true}
	participant := Jid{ID: "15557654321"}
	gp := GroupPeer(group, participant)
	require.NotNil(t, gp.Group)
	require.NotNil(t, gp.Participant)
	assert.Equal(t, group, *gp.Group)
	assert.Equal(t, participant, *gp.Participant)
}

func TestDirectionIsSending(t *testing.T) {
	jid := Jid{ID: "15551234567"}
	sending := Direction{SendingTo: &jid}
	assert.True(t, sending.IsSending())

	peer := IndividualPeer(jid)
	receiving := Direction{ReceivingAt: &peer}
	assert.False(t, receiving.IsSending())
}
