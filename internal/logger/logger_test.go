package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attend.log")
	log := New(Config{File: path, Level: "debug"})
	if log.Level != logrus.DebugLevel {
		t.Errorf("level = %v", log.Level)
	}
	log.WithField("module", "test").Info("hello file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "module=test") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewUnknownLevel(t *testing.T) {
	if got := New(Config{Level: "chatty"}).Level; got != logrus.InfoLevel {
		t.Errorf("level = %v, want info", got)
	}
}
