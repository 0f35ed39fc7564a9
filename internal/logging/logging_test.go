package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_JSONAndLevelFilter(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Info().Msg("hidden")
	Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("expected structured warn line, got %s", out)
	}
}

func TestCtx_CarriesRequestID(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	ctx := WithRequestID(context.Background(), "abc123")
	Ctx(ctx).Info().Msg("hello")

	if !strings.Contains(buf.String(), `"rid":"abc123"`) {
		t.Fatalf("expected rid field, got %s", buf.String())
	}
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	if Ctx(context.Background()) == nil {
		t.Fatal("Ctx must never return nil")
	}
}
