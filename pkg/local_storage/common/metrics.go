package common

import (
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/mode"
)

// Metrics is the interface of the storage metrics collector.
type Metrics interface {
	// IncOpen counts opened containers by mode.
	IncOpen(m mode.Mode)
	// IncLockContention counts rejected write opens.
	IncLockContention()
	// AddCommitDuration records the time spent in Commit.
	AddCommitDuration(d time.Duration)
	// SetVisibleChunks sets the number of chunks merged by the union
	// container of the directory.
	SetVisibleChunks(dir string, n int)
}

type noopMetrics struct{}

// NoopMetrics returns Metrics which does nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) IncOpen(mode.Mode)               {}
func (noopMetrics) IncLockContention()              {}
func (noopMetrics) AddCommitDuration(time.Duration) {}
func (noopMetrics) SetVisibleChunks(string, int)    {}
