package testutil_test

import (
	"testing"

	"github.com/aimstack/aimstore/internal/testutil"
	"go.uber.org/zap"
)

func TestNewBufferedLogger(t *testing.T) {
	l, b := testutil.NewBufferedLogger(t, zap.InfoLevel)
	b.AssertEmpty()

	l.Debug("skipped")
	b.AssertEmpty()

	l.Warn("chunk excluded", zap.String("path", "/repo/meta/chunks/a"), zap.Int("n", 1))
	l.Info("other")

	b.AssertContains(testutil.LogEntry{
		Level:   zap.WarnLevel,
		Message: "chunk excluded",
		Fields:  map[string]any{"path": "/repo/meta/chunks/a"},
	})
	b.AssertContains(testutil.LogEntry{
		Level:   zap.WarnLevel,
		Message: "chunk excluded",
		Fields:  map[string]any{"n": int64(1)},
	})
	b.AssertContains(testutil.LogEntry{Level: zap.InfoLevel, Message: "other"})
}
