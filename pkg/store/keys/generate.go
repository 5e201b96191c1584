package keys

import (
	"encoding/hex"
	"fmt"
)

// Encode renders an arbitrary byte segment so it can never contain ":".
func Encode(seg []byte) string {
	return hex.EncodeToString(seg)
}

// Decode reverses Encode.
func Decode(seg string) ([]byte, error) {
	b, err := hex.DecodeString(seg)
	if err != nil {
		return nil, fmt.Errorf("invalid key segment %q: %w", seg, err)
	}
	return b, nil
}

func GenMessageKey(convoID []byte, seq uint64) []byte {
	return []byte(fmt.Sprintf(MessageKey, Encode(convoID), PadSeq(seq)))
}

func GenConversationMessagesPrefix(convoID []byte) []byte {
	return []byte(fmt.Sprintf(ConversationMessagesPrefix, Encode(convoID)))
}

func GenConversationMessageCountKey(convoID []byte) []byte {
	return []byte(fmt.Sprintf(ConversationMessageCount, Encode(convoID)))
}

func GenConversationActiveKey(convoID []byte) []byte {
	return []byte(fmt.Sprintf(ConversationActive, Encode(convoID)))
}

func GenIdentityConversationsKey(identity string) []byte {
	return []byte(fmt.Sprintf(IdentityConversations, Encode([]byte(identity))))
}

func GenUsernameKey(name []byte) []byte {
	return []byte(fmt.Sprintf(UsernameKey, Encode(name)))
}

func PadSeq(seq uint64) string {
	return fmt.Sprintf("%0*d", SeqPadWidth, seq)
}
