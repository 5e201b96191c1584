// Package active keeps the activation index: one started flag per
// conversation id and a bounded list of active conversations per identity.
package active

import (
	"fmt"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/keys"
)

var trueValue = []byte("true")

// EnsureActivated starts the conversation on its first use. It returns true
// when this call started it and false when it was already active. On error
// nothing has been staged.
func EnsureActivated(txn *store.Txn, limits models.Limits, convoID []byte, initiator models.Identity, initiatorName []byte, recipient models.Identity, recipientName []byte) (bool, error) {
	if len(convoID) > limits.MaxConvoIdLength {
		return false, models.ErrInvalidConvoId
	}
	started, err := IsActive(txn, convoID)
	if err != nil {
		return false, err
	}
	if started {
		return false, nil
	}

	record := models.ActiveConversation{
		Initiator:     initiator,
		InitiatorName: append([]byte(nil), initiatorName...),
		Recipient:     recipient,
		RecipientName: append([]byte(nil), recipientName...),
	}

	// both lists are read before either is written; for a self-conversation
	// the second write replaces the first and the identity gets one record
	initiatorList, err := List(txn, initiator)
	if err != nil {
		return false, err
	}
	recipientList, err := List(txn, recipient)
	if err != nil {
		return false, err
	}
	if len(initiatorList) >= limits.MaxActiveConversationAmount || len(recipientList) >= limits.MaxActiveConversationAmount {
		return false, models.ErrConversationLimitReached
	}
	initiatorList = append(initiatorList, record)
	recipientList = append(recipientList, record)

	if err := txn.Set(keys.GenConversationActiveKey(convoID), trueValue); err != nil {
		return false, fmt.Errorf("save active flag: %w", err)
	}
	if err := txn.SetJSON(keys.GenIdentityConversationsKey(initiator.String()), initiatorList); err != nil {
		return false, fmt.Errorf("save active conversations: %w", err)
	}
	if err := txn.SetJSON(keys.GenIdentityConversationsKey(recipient.String()), recipientList); err != nil {
		return false, fmt.Errorf("save active conversations: %w", err)
	}
	return true, nil
}

// IsActive reports whether the conversation has been started.
func IsActive(r store.Reader, convoID []byte) (bool, error) {
	v, found, err := store.GetValue(r, keys.GenConversationActiveKey(convoID))
	if err != nil {
		return false, fmt.Errorf("read active flag: %w", err)
	}
	return found && string(v) == string(trueValue), nil
}

// List returns the identity's active conversations in the order they were
// started. The result is never nil.
func List(r store.Reader, identity models.Identity) ([]models.ActiveConversation, error) {
	var list []models.ActiveConversation
	if _, err := store.GetJSON(r, keys.GenIdentityConversationsKey(identity.String()), &list); err != nil {
		return nil, fmt.Errorf("read active conversations: %w", err)
	}
	if list == nil {
		list = []models.ActiveConversation{}
	}
	return list, nil
}
