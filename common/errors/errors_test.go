package errors

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestExitCodeOf(t *testing.T) {
	base := fmt.Errorf("boom")
	if ExitCodeOf(nil) != 0 {
		t.Error("expected 0 for nil")
	}
	if ExitCodeOf(base) != 1 {
		t.Error("expected 1 for plain error")
	}
	tagged := NewError(base, TransportFailureExitCode)
	if ExitCodeOf(tagged) != TransportFailureExitCode {
		t.Errorf("expected transport code, got %d", ExitCodeOf(tagged))
	}
	wrapped := pkgerrors.Wrap(tagged, "outer")
	if ExitCodeOf(wrapped) != TransportFailureExitCode {
		t.Errorf("expected code through wrap, got %d", ExitCodeOf(wrapped))
	}
	if pkgerrors.Cause(wrapped) != base {
		t.Error("expected Cause to reach the base error")
	}
	if NewError(nil, ConfigFailureExitCode) != nil {
		t.Error("expected nil for nil error")
	}
}
