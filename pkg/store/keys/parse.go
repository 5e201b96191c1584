package keys

import (
	"fmt"
	"strconv"
	"strings"
)

type KeyType string

const (
	KeyTypeMessage       KeyType = "message"
	KeyTypeMessageCount  KeyType = "message_count"
	KeyTypeActiveFlag    KeyType = "active_flag"
	KeyTypeIdentityIndex KeyType = "identity_index"
	KeyTypeUsername      KeyType = "username"
)

// KeyParts is the decoded form of any ledger key.
type KeyParts struct {
	Type           KeyType
	ConversationID []byte
	Seq            uint64
	Identity       string
	Username       []byte
}

// ParseKey decodes a key produced by one of the Gen* helpers.
func ParseKey(key string) (KeyParts, error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 4 && parts[0] == "c" && parts[2] == "m":
		id, err := Decode(parts[1])
		if err != nil {
			return KeyParts{}, err
		}
		seq, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return KeyParts{}, fmt.Errorf("invalid message seq in %q: %w", key, err)
		}
		return KeyParts{Type: KeyTypeMessage, ConversationID: id, Seq: seq}, nil
	case len(parts) == 5 && parts[0] == "idx" && parts[1] == "c" && parts[3] == "ms" && parts[4] == "count":
		id, err := Decode(parts[2])
		if err != nil {
			return KeyParts{}, err
		}
		return KeyParts{Type: KeyTypeMessageCount, ConversationID: id}, nil
	case len(parts) == 4 && parts[0] == "idx" && parts[1] == "c" && parts[3] == "active":
		id, err := Decode(parts[2])
		if err != nil {
			return KeyParts{}, err
		}
		return KeyParts{Type: KeyTypeActiveFlag, ConversationID: id}, nil
	case len(parts) == 4 && parts[0] == "idx" && parts[1] == "u" && parts[3] == "convos":
		id, err := Decode(parts[2])
		if err != nil {
			return KeyParts{}, err
		}
		return KeyParts{Type: KeyTypeIdentityIndex, Identity: string(id)}, nil
	case len(parts) == 2 && parts[0] == "n":
		name, err := Decode(parts[1])
		if err != nil {
			return KeyParts{}, err
		}
		return KeyParts{Type: KeyTypeUsername, Username: name}, nil
	}
	return KeyParts{}, fmt.Errorf("unknown key format: %q", key)
}
