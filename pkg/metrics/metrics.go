package metrics

import (
	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aimstore"

// StorageMetrics collects metrics of the local storage.
type StorageMetrics struct {
	containerMetrics
	unionMetrics
}

var _ common.Metrics = (*StorageMetrics)(nil)

// NewStorageMetrics creates and registers storage metrics. Nil registerer
// means the default one.
func NewStorageMetrics(reg prometheus.Registerer, version string) *StorageMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newContainerMetrics()
	c.register(reg)

	u := newUnionMetrics()
	u.register(reg)

	registerVersionMetric(reg, namespace, version)

	return &StorageMetrics{
		containerMetrics: c,
		unionMetrics:     u,
	}
}
