package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"DEBUG", logrus.DebugLevel},
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, test := range tests {
		if got := ParseLevel(test.input); got != test.expected {
			t.Errorf("For input '%s', expected %s, got %s", test.input, test.expected, got)
		}
	}
}

func TestWithErrorCarriesComponent(t *testing.T) {
	Initialize("INFO", "")
	var buf bytes.Buffer
	SetOutput(&buf)

	WithError(errors.New("boom"), "detector_client").Warn("call failed")

	out := buf.String()
	if !strings.Contains(out, "component=detector_client") {
		t.Errorf("Expected component field in output, got %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("Expected error field in output, got %q", out)
	}
}
