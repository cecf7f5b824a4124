package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggerConfigLevels(t *testing.T) {
	cases := []struct {
		production bool
		level      string
		want       zapcore.Level
	}{
		{true, "", zapcore.InfoLevel},
		{false, "", zapcore.DebugLevel},
		{true, "warn", zapcore.WarnLevel},
		{false, "nonsense", zapcore.DebugLevel},
	}
	for _, tc := range cases {
		cfg := LoggerConfig(tc.production, tc.level)
		if got := cfg.Level.Level(); got != tc.want {
			t.Fatalf("LoggerConfig(%v, %q) level = %v, want %v", tc.production, tc.level, got, tc.want)
		}
	}
	if enc := LoggerConfig(true, "").Encoding; enc != "json" {
		t.Fatalf("production encoding = %q, want json", enc)
	}
}
