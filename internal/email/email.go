// Package email delivers a newsletter issue to a single recipient through
// one of several transports.
package email

import (
	"context"
	"errors"
)

// ErrSenderUnavailable means the transport refused the message without
// attempting delivery, e.g. while its circuit breaker is open.
var ErrSenderUnavailable = errors.New("email sender unavailable")

// Message is one newsletter addressed to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender performs the delivery side effect. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
