package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("policy_store.path", "must not be empty")
	if !strings.Contains(err.Error(), "policy_store.path") {
		t.Errorf("error lacks field: %v", err)
	}

	bare := NewConfigError("", "file unreadable")
	if strings.Contains(bare.Error(), "in ") {
		t.Errorf("fieldless error mentions a field: %v", bare)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("db locked")
	err := NewCommandError("policy add", cause)

	if !errors.Is(err, cause) {
		t.Error("CommandError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "policy add") {
		t.Errorf("error lacks command name: %v", err)
	}
}
