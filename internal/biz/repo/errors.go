package repo

import "errors"

var (
	// ErrNotFound is returned when a looked-up entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrChatNotFound is returned when no chat matches a name or id
	ErrChatNotFound = errors.New("chat not found")
)
