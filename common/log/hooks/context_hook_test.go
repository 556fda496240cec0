package hooks

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestContextHookAddsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.Out = &buf
	logger.AddHook(NewContextHook())

	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "context_hook_test.go:") {
		t.Errorf("expected caller file in log line, got %q", out)
	}
}

func TestTrim(t *testing.T) {
	h := NewContextHook()
	if got := h.trim("/src/github.com/dataspaces/hsched/scheduler/server/x.go"); got != "scheduler/server/x.go" {
		t.Errorf("unexpected trim %q", got)
	}
	if got := h.trim("/usr/lib/x.go"); got != "/usr/lib/x.go" {
		t.Errorf("unexpected trim %q", got)
	}
}
