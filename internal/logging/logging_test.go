package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	logger, closer, err := New(path, "debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Component(logger, "link").WithField("port", "/dev/ttyUSB0").Debug("opening")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"component=link", "port=/dev/ttyUSB0", "opening"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %q", out, want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New("", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewEmptyPathDiscards(t *testing.T) {
	logger, closer, err := New("", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %s, want warn", logger.GetLevel())
	}
}
