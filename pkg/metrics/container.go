package metrics

import (
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/mode"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	containerSubsystem = "container"

	modeLabelKey = "mode"
)

type containerMetrics struct {
	openCount      prometheus.CounterVec
	lockContention prometheus.Counter
	commitDuration prometheus.Histogram
}

func newContainerMetrics() containerMetrics {
	var (
		openCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: containerSubsystem,
			Name:      "open_count",
			Help:      "Number of opened chunks",
		}, []string{modeLabelKey})

		lockContention = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: containerSubsystem,
			Name:      "lock_contention_count",
			Help:      "Number of write opens rejected because of the held lock",
		})

		commitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: containerSubsystem,
			Name:      "commit_time",
			Help:      "Chunk 'commit' operations handling time",
		})
	)
	return containerMetrics{
		openCount:      *openCount,
		lockContention: lockContention,
		commitDuration: commitDuration,
	}
}

func (m containerMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(&m.openCount)
	reg.MustRegister(m.lockContention)
	reg.MustRegister(m.commitDuration)
}

func (m containerMetrics) IncOpen(md mode.Mode) {
	m.openCount.With(prometheus.Labels{modeLabelKey: md.String()}).Inc()
}

func (m containerMetrics) IncLockContention() {
	m.lockContention.Inc()
}

func (m containerMetrics) AddCommitDuration(d time.Duration) {
	m.commitDuration.Observe(d.Seconds())
}
