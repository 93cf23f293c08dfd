package queue

import "errors"

var (
	// ErrQueueClosed is returned by operations on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrItemNotFound is returned when a dead-letter item does not exist
	ErrItemNotFound = errors.New("item not found")
)
