// Package users is the identity directory: bounded usernames mapped to the
// identity that registered them.
package users

import (
	"encoding/json"
	"fmt"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/keys"
)

// Register binds name to caller, replacing any previous holder of the name.
// The write is staged on txn.
func Register(txn *store.Txn, limits models.Limits, caller models.Identity, name []byte) (models.User, error) {
	if len(name) > limits.MaxUsernameLength {
		return models.User{}, models.ErrUsernameExceedsLength
	}
	user := models.User{Account: caller, Username: append([]byte(nil), name...)}
	if err := txn.SetJSON(keys.GenUsernameKey(name), user); err != nil {
		return models.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Get looks up the current holder of name.
func Get(r store.Reader, name []byte) (*models.User, bool, error) {
	var user models.User
	found, err := store.GetJSON(r, keys.GenUsernameKey(name), &user)
	if err != nil || !found {
		return nil, found, err
	}
	return &user, true, nil
}

// ListByAccount returns every username currently held by account.
func ListByAccount(r store.Reader, account models.Identity) ([]models.User, error) {
	out := []models.User{}
	err := store.ScanPrefix(r, []byte(keys.UsernamePrefix), func(k, v []byte) error {
		var u models.User
		if err := json.Unmarshal(v, &u); err != nil {
			return fmt.Errorf("unmarshal %s: %w", k, err)
		}
		if u.Account == account {
			out = append(out, u)
		}
		return nil
	})
	return out, err
}
