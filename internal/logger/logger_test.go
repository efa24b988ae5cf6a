package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	defer Logger.SetLevel(Logger.GetLevel())

	tests := []struct {
		name    string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{" WARN ", logrus.WarnLevel, false},
		{"", logrus.InfoLevel, false},
		{"chatty", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		Logger.SetLevel(logrus.InfoLevel)
		err := SetLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if Logger.GetLevel() != tt.want {
			t.Errorf("SetLevel(%q) level = %s, want %s", tt.name, Logger.GetLevel(), tt.want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	WithFields(logrus.Fields{"test_type": "adams_test"}).Info("screening completed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "screening completed" || entry["test_type"] != "adams_test" {
		t.Errorf("Unexpected log entry %v", entry)
	}
}

func TestNew_WritesTimestampedJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Debug("hidden")
	l.WithField("score", 0.5).Warn("capture warning")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warning" || entry["score"] != 0.5 {
		t.Errorf("Unexpected log entry %v", entry)
	}
	if _, ok := entry["time"].(string); !ok {
		t.Errorf("Expected a time field, got %v", entry)
	}
}
