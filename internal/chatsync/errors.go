package chatsync

import "errors"

var (
	// ErrEmptyMessage is returned by Send when the text is blank after trimming.
	ErrEmptyMessage = errors.New("chatsync: message text is empty")

	// ErrSessionClosed is returned once the owning view has gone away.
	ErrSessionClosed = errors.New("chatsync: session closed")

	// ErrNotFound means no message with the given ID is in the store.
	ErrNotFound = errors.New("chatsync: message not found")

	// ErrDuplicateID means an insert would break ID uniqueness.
	ErrDuplicateID = errors.New("chatsync: duplicate message id")

	// ErrNotOptimistic means a local-state mutation targeted a server message.
	ErrNotOptimistic = errors.New("chatsync: message is not client-originated")

	// ErrNotRetryable is returned by Retry for messages that are not failed text sends.
	ErrNotRetryable = errors.New("chatsync: message cannot be retried")

	// ErrInvalidTransition is returned for a send state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("chatsync: invalid send state transition")
)
