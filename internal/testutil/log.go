package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// LogEntry represents single [zap.Logger] entry.
type LogEntry struct {
	Level   zapcore.Level
	Message string
	Fields  map[string]any
}

// LogBuffer is a memory buffer for [zap.Logger] entries.
type LogBuffer struct {
	t    testing.TB
	logs *observer.ObservedLogs
}

// NewBufferedLogger returns buffered logger for testing.
//
// Entries with severity less than minLevel are never written.
func NewBufferedLogger(t testing.TB, minLevel zapcore.Level) (*zap.Logger, *LogBuffer) {
	core, logs := observer.New(minLevel)
	return zap.New(core), &LogBuffer{t: t, logs: logs}
}

// AssertEmpty asserts that log is empty.
func (x *LogBuffer) AssertEmpty() {
	require.Zero(x.t, x.logs.Len())
}

// AssertContains asserts that log contains at least one entry with the
// message and the level. Fields of the expected entry must be present in
// the found one, other fields are ignored.
func (x *LogBuffer) AssertContains(e LogEntry) {
	for _, got := range x.logs.FilterMessage(e.Message).All() {
		if got.Level != e.Level {
			continue
		}

		ctx := got.ContextMap()

		matched := true
		for k, v := range e.Fields {
			if cv, ok := ctx[k]; !ok || cv != v {
				matched = false
				break
			}
		}

		if matched {
			return
		}
	}

	require.Failf(x.t, "log entry not found", "level: %s, message: %q, fields: %v, log: %v",
		e.Level, e.Message, e.Fields, x.Messages())
}

// Messages returns messages of all entries in the order of writing.
func (x *LogBuffer) Messages() []string {
	all := x.logs.All()
	res := make([]string, len(all))
	for i := range all {
		res[i] = all[i].Message
	}
	return res
}
