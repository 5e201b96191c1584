package models

// ActiveConversation is created once per conversation id when it is first
// used and appended to both participants' active lists.
type ActiveConversation struct {
	Initiator     Identity `json:"initiator"`
	InitiatorName []byte   `json:"initiator_name"`
	Recipient     Identity `json:"recipient"`
	RecipientName []byte   `json:"recipient_name"`
}

