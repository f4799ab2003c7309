package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{" trace ", zerolog.TraceLevel},
		{"off", zerolog.Disabled},
		{"disabled", zerolog.Disabled},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "json", &buf)
	log.Info().Str("key", "value").Msg("hello")

	if !bytes.Contains(buf.Bytes(), []byte(`"message":"hello"`)) {
		t.Errorf("expected JSON message field, got: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"key":"value"`)) {
		t.Errorf("expected key field, got: %s", buf.String())
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", "json", &buf)
	log.Info().Msg("dropped")

	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got: %s", buf.String())
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "console", &buf)
	log.Info().Msg("hello")

	if bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		t.Errorf("console format should not write JSON, got: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("expected message in output, got: %s", buf.String())
	}
}
