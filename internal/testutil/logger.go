// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug-level slog.Logger routed through t.Log,
// so log lines show up interleaved with test output on failure or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{tb: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct {
	tb testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(string(p))
	return len(p), nil
}
