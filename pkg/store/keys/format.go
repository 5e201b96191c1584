package keys

const (
	// notation dictionary for key formats:
	// c   = conversation
	// m   = message
	// idx = index
	// ms  = messages
	// u   = identity (user)
	// n   = username
	// All keys are lowercase; segments are separated by ":"
	// <...> = hex encoded variable segment

	// primary storage key formats
	MessageKey  = "c:%s:m:%s" // c:<convo>:m:<seq>
	UsernameKey = "n:%s"      // n:<username>

	// conversation indexes
	ConversationMessageCount = "idx:c:%s:ms:count" // idx:c:<convo>:ms:count
	ConversationActive       = "idx:c:%s:active"   // idx:c:<convo>:active

	// identity indexes
	IdentityConversations = "idx:u:%s:convos" // idx:u:<identity>:convos

	// prefixes
	ConversationMessagesPrefix = "c:%s:m:"
	UsernamePrefix             = "n:"

	// padding width (fixed for lexicographic ordering)
	SeqPadWidth = 6
)
