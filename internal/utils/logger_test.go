// internal/utils/logger_test.go

package utils

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		wantErr bool
	}{
		{"defaults", LoggerConfig{}, false},
		{"json debug", LoggerConfig{Level: "debug", Format: "json"}, false},
		{"warning alias", LoggerConfig{Level: "WARNING", Format: "console"}, false},
		{"bad level", LoggerConfig{Level: "loud"}, true},
		{"bad format", LoggerConfig{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogger(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestZapLoggerSetLevelIsShared(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "info"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.WithField("run_id", "abc").(*ZapLogger)
	if err := logger.SetLevel("error"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if child.level.Level().String() != "error" {
		t.Errorf("child level = %s, want error", child.level.Level())
	}
	if err := logger.SetLevel("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithFields(map[string]interface{}{"url": "https://example.com"}).Infof("fetched %d bytes", 10)
}
