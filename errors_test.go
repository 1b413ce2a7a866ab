package courier

import (
	"errors"
	"strings"
	"testing"

	"github.com/courierkit/courier/directory"
	"github.com/courierkit/courier/transport"
)

func TestResolutionError(t *testing.T) {
	t.Run("Error message names the failing step", func(t *testing.T) {
		err := resolutionErr("lookup", directory.ErrNotFound)
		msg := err.Error()
		if !strings.Contains(msg, "lookup") {
			t.Errorf("expected message to contain the op, got %q", msg)
		}
	})

	t.Run("Unwrap exposes the cause", func(t *testing.T) {
		err := resolutionErr("query", directory.ErrNotFound)
		if !errors.Is(err, directory.ErrNotFound) {
			t.Error("expected errors.Is to match the cause")
		}
		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			t.Fatal("expected errors.As to match *ResolutionError")
		}
		if rerr.Op != "query" {
			t.Errorf("op = %q, want query", rerr.Op)
		}
	})
}

func TestSendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &SendError{Address: "a@x.io", Cause: cause}

	if !strings.Contains(err.Error(), "a@x.io") {
		t.Errorf("expected message to contain the address, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
}

func TestErrUnsupportedTransportWrapping(t *testing.T) {
	if !errors.Is(ErrUnsupportedTransport, transport.ErrUnsupportedKind) {
		t.Error("expected ErrUnsupportedTransport to wrap transport.ErrUnsupportedKind")
	}
}
