package logs

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "json")
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", logger.Formatter)
	}

	fallback := NewLogger("loud", "text")
	if fallback.GetLevel() != logrus.InfoLevel {
		t.Errorf("unknown level = %s, want info", fallback.GetLevel())
	}
	if _, ok := fallback.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, want text", fallback.Formatter)
	}
}

func TestDiscard(t *testing.T) {
	if out := Discard().Out; out != io.Discard {
		t.Errorf("output = %T, want io.Discard", out)
	}
}
