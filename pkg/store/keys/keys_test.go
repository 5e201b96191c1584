package keys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageKeysSortBySeq(t *testing.T) {
	id := []byte("c1")
	k9 := GenMessageKey(id, 9)
	k10 := GenMessageKey(id, 10)
	assert.Negative(t, bytes.Compare(k9, k10), "seq 9 must sort before seq 10")
	assert.True(t, bytes.HasPrefix(k10, GenConversationMessagesPrefix(id)))
}

func TestSeparatorInSegmentsIsEncoded(t *testing.T) {
	key := string(GenConversationActiveKey([]byte("a:b:c")))
	assert.Equal(t, 4, len(strings.Split(key, ":")))

	parts, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, KeyTypeActiveFlag, parts.Type)
	assert.Equal(t, []byte("a:b:c"), parts.ConversationID)
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
		want KeyParts
	}{
		{
			name: "message",
			key:  GenMessageKey([]byte("abc123"), 42),
			want: KeyParts{Type: KeyTypeMessage, ConversationID: []byte("abc123"), Seq: 42},
		},
		{
			name: "message count",
			key:  GenConversationMessageCountKey([]byte("abc123")),
			want: KeyParts{Type: KeyTypeMessageCount, ConversationID: []byte("abc123")},
		},
		{
			name: "identity index",
			key:  GenIdentityConversationsKey("alice"),
			want: KeyParts{Type: KeyTypeIdentityIndex, Identity: "alice"},
		},
		{
			name: "username",
			key:  GenUsernameKey([]byte("badery")),
			want: KeyParts{Type: KeyTypeUsername, Username: []byte("badery")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKey(string(tc.key))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseKey("t:thread-1")
	assert.Error(t, err)
	_, err = ParseKey("n:zz")
	assert.Error(t, err, "non-hex segment must be rejected")
}
