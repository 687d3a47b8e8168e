package storage

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidData          = errors.New("invalid data")
)
