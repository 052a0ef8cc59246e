package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := map[string]zerolog.Level{
		"trace":     zerolog.TraceLevel,
		"  DeBuG  ": zerolog.DebugLevel,
		"info":      zerolog.InfoLevel,
		"":          zerolog.InfoLevel,
		"warning":   zerolog.WarnLevel,
		"ERROR":     zerolog.ErrorLevel,
		"panic":     zerolog.PanicLevel,
		"verbose":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	origLevel, origLog := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLog
	})

	var buf bytes.Buffer
	l := newLogger(&buf, "", "warn", false)
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	if m["service"] != "formguard" || m["message"] != "kept" || m["time"] == nil {
		t.Fatalf("unexpected entry: %v", m)
	}

	log.Warn().Msg("global")
	if !strings.Contains(buf.String(), `"global"`) {
		t.Fatalf("global logger not installed")
	}
}

func TestNewLogger_Pretty(t *testing.T) {
	origLevel, origLog := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLog
	})

	var buf bytes.Buffer
	l := newLogger(&buf, "svc", "info", true)
	l.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{" ", "\t"}, ""},
		{[]string{"", "v1.4.0", "dev"}, "v1.4.0"},
		{[]string{"   ", "  kept  "}, "  kept  "},
	}
	for _, tc := range cases {
		if got := FirstNonEmpty(tc.in...); got != tc.want {
			t.Fatalf("FirstNonEmpty(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
