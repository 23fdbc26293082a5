package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	l.WithEvent("evt-1", "Message", "conv-1").Info("processed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	for key, want := range map[string]string{
		"event_id":        "evt-1",
		"event_type":      "Message",
		"conversation_id": "conv-1",
	} {
		if got := fields[key]; got != want {
			t.Errorf("field %s = %v, want %q", key, got, want)
		}
	}
}

func TestGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	nop := NewNop()
	SetGlobal(nop)
	if Global() != nop {
		t.Error("Global() did not return the logger passed to SetGlobal")
	}
}

func TestGlobal_UnsetFallsBackToNop(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	SetGlobal(nil)
	l := Global()
	if l == nil {
		t.Fatal("Global() = nil, want a no-op logger")
	}
	l.Info("discarded")
}
