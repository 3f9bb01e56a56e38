package domain

import (
	"errors"
	"time"
)

var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DeadLetter is an outbound reservation the relay gave up on.
type DeadLetter struct {
	ID          string      `json:"id"`
	Topic       string      `json:"topic"`
	Reservation Reservation `json:"reservation"`
	Reason      string      `json:"reason"`
	FailedAt    time.Time   `json:"failed_at"`
}
