package models

// Limits are the bounds every call is checked against. They are fixed for
// the lifetime of a ledger.
type Limits struct {
	MaxUsernameLength           int `yaml:"max_username_length"`
	MaxConvoIdLength            int `yaml:"max_convo_id_length"`
	MaxMessageAmount            int `yaml:"max_message_amount"`
	MaxActiveConversationAmount int `yaml:"max_active_conversation_amount"`
	// MaxMessageLength bounds message content; 0 disables the check.
	MaxMessageLength int `yaml:"max_message_length"`
}

// DefaultLimits returns the bounds used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxUsernameLength:           10,
		MaxConvoIdLength:            10,
		MaxMessageAmount:            1000,
		MaxActiveConversationAmount: 100,
	}
}
