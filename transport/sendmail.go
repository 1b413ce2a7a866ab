package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// DefaultSendmailPath is where most distributions install the sendmail binary.
const DefaultSendmailPath = "/usr/sbin/sendmail"

// SendmailConfig holds configuration for the local sendmail transport.
type SendmailConfig struct {
	// Path is the sendmail binary. Defaults to DefaultSendmailPath.
	Path string
	// Args are extra arguments placed before the standard "-i -t".
	Args []string
}

// Sendmail delivers messages by piping them to a local sendmail-compatible
// binary. Recipients are taken from the message headers (-t).
type Sendmail struct {
	path string
	args []string
}

// Ensure Sendmail implements Transport.
var _ Transport = (*Sendmail)(nil)

// NewSendmail creates a sendmail transport.
func NewSendmail(cfg SendmailConfig) (*Sendmail, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultSendmailPath
	}
	return &Sendmail{path: path, args: cfg.Args}, nil
}

// Name returns the transport identifier.
func (s *Sendmail) Name() string { return KindSendmail }

// Send formats msg as RFC 5322 mail and pipes it to the sendmail binary.
func (s *Sendmail) Send(ctx context.Context, msg Message) error {
	m, err := buildMail(msg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return fmt.Errorf("transport: format message: %w", err)
	}

	args := append(append([]string{}, s.args...), "-i", "-t")
	cmd := exec.CommandContext(ctx, s.path, args...)
	cmd.Stdin = &buf

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("transport: sendmail %s: %w: %s", s.path, err, bytes.TrimSpace(out))
	}
	return nil
}
