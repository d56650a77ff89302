package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJidSuffixes(t *testing.T) {
	cases := []struct {
		in      string
		wantID  string
		isGroup bool
	}{
		{"15551234567@c.us", "15551234567", false},
		{"15551234567@s.whatsapp.net", "15551234567", false},
		{"15551234567@broadcast", "15551234567", false},
		{"123456789-987654321@g.us", "123456789-987654321", true},
	}
	for _, tc := range cases {
		jid, err := ParseJid(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.wantID, jid.ID)
		assert.Equal(t, tc.isGroup, jid.IsGroup)
	}
}

func TestParseJidRejectsMissingAt(t *testing.T) {
	_, err := ParseJid("no-at-sign")
	assert.Error(t, err)
}

func TestParseJidRejectsUnknownSuffix(t *testing.T) {
	_, err := ParseJid("15551234567@example.com")
	assert.Error(t, err)
}

func TestJidStringAndMessageJid(t *testing.T) {
	individual := Jid{ID: "15551234567"}
	assert.Equal(t, "15551234567@c.us", individual.String())
	assert.Equal(t, "15551234567@s.whatsapp.net", individual.MessageJid())

	group := Jid{ID: "123-456", IsGroup: true}
	assert.Equal(t, "123-456@g.us", group.String())
	assert.Equal(t, "123-456@g.us", group.MessageJid())
}

func TestJidPhonenumber(t *testing.T) {
	individual := Jid{ID: "15551234567"}
	num, ok := individual.Phonenumber()
	assert.True(t, ok)
	assert.Equal(t, "+15551234567", num)

	group := Jid{ID: "123-456", IsGroup: true}
	_, ok = group.Phonenumber()
	assert.False(t, ok)
}

func TestJidFromPhonenumber(t *testing.T) {
	jid, err := JidFromPhonenumber("+15551234567")
	require.NoError(t, err)
	assert.Equal(t, Jid{ID: "15551234567"}, jid)

	jid, err = JidFromPhonenumber("15551234567")
	require.NoError(t, err)
	assert.Equal(t, Jid{ID: "15551234567"}, jid)

	_, err = JidFromPhonenumber("+1555abc4567")
	assert.Error(t, err)
}

func TestJidRoundTripThroughString(t *testing.T) {
	original := Jid{ID: "15551234567"}
	parsed, err := ParseJid(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
