package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestDebugRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debug("hidden %s", "message")
	if buf.Len() != 0 {
		t.Errorf("expected no output with verbose off, got %q", buf.String())
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debug("shown %s", "message")
	if got := buf.String(); got != "[DEBUG] shown message\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestInfoRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output with verbose off, got %q", buf.String())
	}
}

func TestWarnAlwaysPrints(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Warn("cache eviction failed: %s", "disk full")
	if got := buf.String(); got != "[WARN] cache eviction failed: disk full\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestErrorAlwaysPrints(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Error("boom")
	if got := buf.String(); got != "[ERROR] boom\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestIsVerbose(t *testing.T) {
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be enabled")
	}
	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be disabled")
	}
}
