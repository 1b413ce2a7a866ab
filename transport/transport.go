// Package transport provides mail delivery backends for courier.
//
// A Transport delivers a single Message to a single recipient. Three
// backends are available, selected by Config.Kind:
//   - "smtp": SMTP relay via the go-mail library
//   - "ses": AWS Simple Email Service (v2 API)
//   - "sendmail": a local sendmail-compatible binary
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the transport package.
var (
	// ErrUnsupportedKind is returned by New for an unrecognized transport kind.
	ErrUnsupportedKind = errors.New("transport: unsupported kind")

	// ErrNoRecipient is returned when a message has no recipient address.
	ErrNoRecipient = errors.New("transport: message has no recipient")
)

// Message is a fully-rendered email ready for delivery.
// To carries a single recipient; fan-out to multiple recipients is the
// caller's responsibility (see courier's dispatcher).
type Message struct {
	// From is the sender address.
	From string
	// To is the recipient address for this delivery.
	To string
	// ReplyTo is an optional reply-to address.
	ReplyTo string
	// Subject is the message subject.
	Subject string
	// HTML is the HTML body (optional).
	HTML string
	// Text is the plain-text body (optional).
	Text string
}

// ForRecipient returns a copy of the message addressed to addr.
func (m Message) ForRecipient(addr string) Message {
	m.To = addr
	return m
}

// Transport delivers rendered messages.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Name returns the transport identifier (e.g. "smtp").
	Name() string
	// Send delivers the message to its recipient.
	Send(ctx context.Context, msg Message) error
}

// Transport kinds accepted by New.
const (
	KindSMTP     = "smtp"
	KindSES      = "ses"
	KindSendmail = "sendmail"
)

// Config selects and configures a transport backend.
// Exactly one of the kind-specific sections is consulted, matching Kind.
type Config struct {
	// Kind selects the backend: "smtp", "ses" or "sendmail".
	Kind string

	SMTP     SMTPConfig
	SES      SESConfig
	Sendmail SendmailConfig
}

// New constructs the transport selected by cfg.Kind.
// An unrecognized kind returns ErrUnsupportedKind; this is a configuration
// error and will not succeed on retry.
func New(ctx context.Context, cfg Config) (Transport, error) {
	switch cfg.Kind {
	case KindSMTP:
		return NewSMTP(cfg.SMTP)
	case KindSES:
		return NewSES(ctx, cfg.SES)
	case KindSendmail:
		return NewSendmail(cfg.Sendmail)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, cfg.Kind)
	}
}
