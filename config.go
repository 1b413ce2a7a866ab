package courier

import (
	"time"

	"github.com/courierkit/courier/transport"
)

// Default configuration values.
const (
	// DefaultConcurrencyLimit is the number of sends admitted per throttle window.
	DefaultConcurrencyLimit = 2
	// DefaultThrottleInterval is the throttle window size.
	DefaultThrottleInterval = 100 * time.Millisecond
	// DefaultCacheTTL is the recipient-cache lifetime.
	DefaultCacheTTL = time.Hour
	// DefaultMaxInFlight bounds concurrent transport sends across all
	// Process calls sharing a processor.
	DefaultMaxInFlight = 10
)

// ReceiverMode selects who receives broadcast notifications.
type ReceiverMode string

// Broadcast receiver modes.
const (
	// ReceiverNone drops broadcast notifications.
	ReceiverNone ReceiverMode = "none"
	// ReceiverConfig sends broadcasts to the configured fixed address list.
	ReceiverConfig ReceiverMode = "config"
	// ReceiverUsers sends broadcasts to every directory user with an email.
	ReceiverUsers ReceiverMode = "users"
)

// Config holds processor configuration. It is read once by NewProcessor and
// immutable thereafter.
type Config struct {
	// Transport selects and configures the mail transport backend.
	Transport transport.Config

	// Sender is the from-address of every outgoing mail. Required.
	Sender string
	// ReplyTo is an optional reply-to address.
	ReplyTo string

	// ConcurrencyLimit is the maximum number of sends admitted within one
	// throttle window. Default 2.
	ConcurrencyLimit int
	// ThrottleInterval is the throttle window size. Default 100ms.
	ThrottleInterval time.Duration

	// CacheTTL is how long resolved recipient sets stay cached. Default 1h.
	CacheTTL time.Duration

	// Receiver selects who receives broadcast notifications.
	// Default ReceiverNone.
	Receiver ReceiverMode
	// ReceiverEmails is the fixed recipient list for ReceiverConfig mode.
	ReceiverEmails []string
}

// withDefaults returns a copy of the config with zero values replaced by
// defaults.
func (c Config) withDefaults() Config {
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = DefaultThrottleInterval
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Receiver == "" {
		c.Receiver = ReceiverNone
	}
	return c
}
