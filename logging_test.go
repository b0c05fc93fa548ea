package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"Error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	log := setupLogging("debug", &buf)
	if !strings.Contains(buf.String(), "Logging set up") {
		t.Errorf("expected startup line, got %q", buf.String())
	}
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
}

func TestSetupLoggingFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := setupLogging("warn", &buf)
	if buf.Len() != 0 {
		t.Errorf("info startup line should be filtered at warn level, got %q", buf.String())
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}
