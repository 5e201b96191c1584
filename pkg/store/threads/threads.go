// Package threads stores the ordered message log of each conversation. A
// message lives at its sequence number; a count key tracks the length.
package threads

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/keys"
)

// Append adds msg to the end of the conversation's thread and returns its
// sequence number.
func Append(txn *store.Txn, limits models.Limits, convoID []byte, msg models.Message) (uint64, error) {
	if limits.MaxMessageLength > 0 && len(msg.Content) > limits.MaxMessageLength {
		return 0, models.ErrMessageExceedsLength
	}
	count, err := Count(txn, convoID)
	if err != nil {
		return 0, err
	}
	if count >= uint64(limits.MaxMessageAmount) {
		return 0, models.ErrConversationLimitReached
	}
	if err := txn.SetJSON(keys.GenMessageKey(convoID, count), msg); err != nil {
		return 0, fmt.Errorf("save message: %w", err)
	}
	next := strconv.FormatUint(count+1, 10)
	if err := txn.Set(keys.GenConversationMessageCountKey(convoID), []byte(next)); err != nil {
		return 0, fmt.Errorf("save message count: %w", err)
	}
	return count, nil
}

// Count returns the number of messages stored for the conversation.
func Count(r store.Reader, convoID []byte) (uint64, error) {
	v, found, err := store.GetValue(r, keys.GenConversationMessageCountKey(convoID))
	if err != nil {
		return 0, fmt.Errorf("read message count: %w", err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse message count %q: %w", v, err)
	}
	return n, nil
}

// List returns the full thread in insertion order. An unknown conversation
// yields an empty, non-nil slice.
func List(r store.Reader, convoID []byte) ([]models.Message, error) {
	out := []models.Message{}
	err := store.ScanPrefix(r, keys.GenConversationMessagesPrefix(convoID), func(k, v []byte) error {
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("unmarshal %s: %w", k, err)
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
