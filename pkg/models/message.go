package models

// Message is one entry of a conversation thread. It is never mutated once
// stored.
type Message struct {
	Sender    Identity `json:"sender"`
	Recipient Identity `json:"recipient"`
	// Time is the caller-supplied UNIX timestamp.
	Time    uint64 `json:"time"`
	Content []byte `json:"content"`
}
