package chatsync

import (
	"fmt"

	"patentchat/internal/models"
)

// SendState is the lifecycle of one client-originated message.
//
//	None -> Sending -> Confirmed
//	            \----> Failed -> Sending
type SendState int

const (
	StateNone SendState = iota
	StateSending
	StateConfirmed
	StateFailed
)

func (s SendState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSending:
		return "sending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SendState(%d)", int(s))
	}
}

// CanTransition reports whether s may move to next.
func (s SendState) CanTransition(next SendState) bool {
	switch s {
	case StateNone:
		return next == StateSending
	case StateSending:
		return next == StateConfirmed || next == StateFailed
	case StateFailed:
		return next == StateSending
	default:
		return false
	}
}

// Transition returns next, or ErrInvalidTransition if the move is not allowed.
func (s SendState) Transition(next SendState) (SendState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// LocalStatus is the marker the store shows for this state.
func (s SendState) LocalStatus() models.LocalStatus {
	switch s {
	case StateSending:
		return models.LocalStatusSending
	case StateFailed:
		return models.LocalStatusFailed
	default:
		return models.LocalStatusNone
	}
}
