package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	unionSubsystem = "union"

	dirLabelKey = "dir"
)

type unionMetrics struct {
	visibleChunks prometheus.GaugeVec
}

func newUnionMetrics() unionMetrics {
	return unionMetrics{
		visibleChunks: *prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: unionSubsystem,
			Name:      "visible_chunks",
			Help:      "Number of chunks merged by the union container",
		}, []string{dirLabelKey}),
	}
}

func (m unionMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(&m.visibleChunks)
}

func (m unionMetrics) SetVisibleChunks(dir string, n int) {
	m.visibleChunks.With(prometheus.Labels{dirLabelKey: dir}).Set(float64(n))
}
