package models

import "errors"

var (
	ErrInvalidConvoId           = errors.New("conversation id exceeds maximum length")
	ErrUsernameExceedsLength    = errors.New("username exceeds maximum length")
	ErrConversationLimitReached = errors.New("conversation limit reached")
	ErrMessageExceedsLength     = errors.New("message exceeds maximum length")
)
