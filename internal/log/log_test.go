package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logFn   func(l Logger)
		want    []string
		notWant []string
	}{
		{
			name:  "text format includes message and attrs",
			cfg:   Config{},
			logFn: func(l Logger) { l.Info("ingested", "chunks", 3) },
			want:  []string{"ingested", "chunks=3"},
		},
		{
			name:  "json format",
			cfg:   Config{JSON: true},
			logFn: func(l Logger) { l.Info("answered") },
			want:  []string{`"msg":"answered"`},
		},
		{
			name:    "debug suppressed at default level",
			cfg:     Config{},
			logFn:   func(l Logger) { l.Debug("noise") },
			notWant: []string{"noise"},
		},
		{
			name:  "debug emitted when level lowered",
			cfg:   Config{Level: slog.LevelDebug},
			logFn: func(l Logger) { l.Debug("detail") },
			want:  []string{"detail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFn(logger)

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("output %q contains suppressed %q", out, notWant)
				}
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")
}
