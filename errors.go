package courier

import (
	"errors"
	"fmt"

	"github.com/courierkit/courier/transport"
)

// Sentinel errors for the courier package.
// Use errors.Is() to check for these errors.
var (
	// ErrUnsupportedTransport is returned when the configured transport kind
	// is unrecognized. Wraps transport.ErrUnsupportedKind for consistent
	// error checking.
	ErrUnsupportedTransport = fmt.Errorf("courier: %w", transport.ErrUnsupportedKind)

	// ErrUnsupportedReceiver is returned when the configured broadcast
	// receiver mode is unrecognized.
	ErrUnsupportedReceiver = errors.New("courier: unsupported broadcast receiver")

	// ErrSenderRequired is returned when no sender address is configured.
	ErrSenderRequired = errors.New("courier: sender address is required")

	// ErrTransportRequired is returned when no transport kind is configured.
	ErrTransportRequired = errors.New("courier: transport kind is required")

	// ErrDirectoryRequired is returned when a directory-backed receiver mode
	// is configured without a directory.
	ErrDirectoryRequired = errors.New("courier: directory is required")

	// ErrConnectInProgress is returned by Connect while another Connect call
	// is still initializing the event bus.
	ErrConnectInProgress = errors.New("courier: connect already in progress")
)

// ResolutionError is returned when recipient resolution fails against the
// directory or the credential source. It aborts delivery of the current
// notification only; the processor itself stays usable.
type ResolutionError struct {
	// Op is the resolution step that failed ("credential", "query", "lookup").
	Op string
	// Cause is the underlying error.
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("courier: resolve recipients: %s: %v", e.Op, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// resolutionErr wraps err as a ResolutionError for the given step.
func resolutionErr(op string, err error) error {
	return &ResolutionError{Op: op, Cause: err}
}

// SendError records a failed delivery attempt for a single recipient.
// Send errors never propagate out of a dispatch; they are reported through
// the DispatchResult and the log.
type SendError struct {
	// Address is the recipient whose delivery failed.
	Address string
	// Cause is the transport error.
	Cause error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("courier: send to %s: %v", e.Address, e.Cause)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}
