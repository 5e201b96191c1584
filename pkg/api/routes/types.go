package routes

import (
	"encoding/base64"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

// Byte fields (conversation ids, content, display names, usernames) are
// opaque and travel as standard base64 in JSON bodies. In paths they are
// unpadded base64url.

type storeMessageRequest struct {
	Message       []byte `json:"message"`
	Time          uint64 `json:"time"`
	ConvoID       []byte `json:"convo_id"`
	Recipient     string `json:"recipient"`
	RecipientName []byte `json:"recipient_name"`
	SenderName    []byte `json:"sender_name"`
}

type storeMessageResponse struct {
	ConvoID []byte `json:"convo_id"`
	Started bool   `json:"started"`
	Seq     uint64 `json:"seq"`
}

type registerRequest struct {
	Name []byte `json:"name"`
}

type startConversationRequest struct {
	Recipient string `json:"recipient"`
}

type signRequest struct {
	UserID string `json:"userId"`
}

type signResponse struct {
	UserID    string `json:"userId"`
	Signature string `json:"signature"`
}

type MessageJSON struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Time      uint64 `json:"time"`
	Content   []byte `json:"content"`
}

type ActiveConversationJSON struct {
	Initiator     string `json:"initiator"`
	InitiatorName []byte `json:"initiator_name"`
	Recipient     string `json:"recipient"`
	RecipientName []byte `json:"recipient_name"`
}

type UserJSON struct {
	Account  string `json:"account"`
	Username []byte `json:"username"`
}

// EncodeSegment renders an opaque id for use as a path segment.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSegment reverses EncodeSegment. Trailing padding is tolerated.
func DecodeSegment(s string) ([]byte, error) {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func MessagesJSON(in []models.Message) []MessageJSON {
	out := make([]MessageJSON, 0, len(in))
	for _, m := range in {
		out = append(out, MessageJSON{
			Sender:    m.Sender.String(),
			Recipient: m.Recipient.String(),
			Time:      m.Time,
			Content:   m.Content,
		})
	}
	return out
}

func ActiveJSON(in []models.ActiveConversation) []ActiveConversationJSON {
	out := make([]ActiveConversationJSON, 0, len(in))
	for _, a := range in {
		out = append(out, ActiveConversationJSON{
			Initiator:     a.Initiator.String(),
			InitiatorName: a.InitiatorName,
			Recipient:     a.Recipient.String(),
			RecipientName: a.RecipientName,
		})
	}
	return out
}

func ToUserJSON(u models.User) UserJSON {
	return UserJSON{Account: u.Account.String(), Username: u.Username}
}
