package union

import (
	"strings"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/util"
	"go.uber.org/zap"
)

// Option is an option of union Container's constructor.
type Option func(*cfg)

// ChunkOrder compares chunk identifiers. Chunks are merged in ascending
// order: on equal keys the greatest chunk wins.
type ChunkOrder func(a, b string) int

type cfg struct {
	log *zap.Logger

	order ChunkOrder

	cacheSize int

	pool util.WorkerPool

	metrics common.Metrics

	containerOpts []container.Option
}

const defaultCacheSize = 4096

func defaultCfg() *cfg {
	return &cfg{
		log:       zap.L(),
		order:     strings.Compare,
		cacheSize: defaultCacheSize,
		pool:      util.NewPseudoWorkerPool(),
		metrics:   common.NoopMetrics(),
	}
}

// WithLogger returns option to specify union Container's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l.With(zap.String("component", "UnionContainer"))
	}
}

// WithChunkOrder returns option to specify order of the chunks. Default
// order compares identifiers as byte strings.
func WithChunkOrder(order ChunkOrder) Option {
	return func(c *cfg) {
		c.order = order
	}
}

// WithCacheSize returns option to specify the number of cached point
// lookups. Zero disables the cache.
func WithCacheSize(sz int) Option {
	return func(c *cfg) {
		c.cacheSize = sz
	}
}

// WithWorkerPool returns option to specify the pool used to open new chunks.
// By default chunks are opened sequentially.
func WithWorkerPool(p util.WorkerPool) Option {
	return func(c *cfg) {
		c.pool = p
	}
}

// WithMetrics returns option to specify metrics collector.
func WithMetrics(m common.Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithContainerOptions returns option to specify options of the chunk
// containers. Read-only mode is forced.
func WithContainerOptions(opts ...container.Option) Option {
	return func(c *cfg) {
		c.containerOpts = opts
	}
}
