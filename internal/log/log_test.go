package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	type test struct {
		in   string
		want slog.Level
		ok   bool
	}
	for _, tc := range []test{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	} {
		got, ok := ParseLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)
	l.Debug("hidden")
	l.With("component", "flight").Info("takeoff", slog.String("aircraft", "cessna"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if rec["msg"] != "takeoff" || rec["component"] != "flight" || rec["aircraft"] != "cessna" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Debug("x")
	l.Info("x")
	l.Infof("%d", 1)
	if l.With("a", 1) != nil {
		t.Errorf("With on nil logger returned non-nil")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	l := New("info", dir)
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.LogFile != filepath.Join(dir, "flightsim.slog") {
		t.Errorf("LogFile = %q", l.LogFile)
	}
	if fi, err := os.Stat(l.LogFile); err != nil || fi.Size() == 0 {
		t.Errorf("log file not written: %v", err)
	}
}
