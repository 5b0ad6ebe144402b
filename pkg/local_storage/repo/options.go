package repo

import (
	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/compression"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/local_storage/union"
	"github.com/aimstack/aimstore/pkg/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option is an option of the Repo constructor.
type Option func(*cfg)

// ChunkIDGenerator returns identifiers of new chunks. Identifiers must be
// unique and valid file names. Union containers merge chunks in the order
// of their identifiers, so later identifiers must compare greater.
type ChunkIDGenerator func() (string, error)

type cfg struct {
	log *zap.Logger

	metrics common.Metrics

	unionCacheSize int

	pool util.WorkerPool

	chunkOrder union.ChunkOrder

	chunkID ChunkIDGenerator

	comp *compression.Config

	containerOpts []container.Option
}

func defaultCfg() *cfg {
	return &cfg{
		log:            zap.L(),
		metrics:        common.NoopMetrics(),
		unionCacheSize: 4096,
		pool:           util.NewPseudoWorkerPool(),
		chunkID:        uuidChunkID,
	}
}

// uuidChunkID generates time-ordered UUID: bytewise order of the
// identifiers matches their creation order.
func uuidChunkID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// WithLogger returns option to specify Repo's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l.With(zap.String("component", "Repo"))
	}
}

// WithMetrics returns option to specify storage metrics collector.
func WithMetrics(m common.Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithUnionCacheSize returns option to specify the number of cached point
// lookups of each union container.
func WithUnionCacheSize(sz int) Option {
	return func(c *cfg) {
		c.unionCacheSize = sz
	}
}

// WithWorkerPool returns option to specify the pool used by union
// containers to open chunks.
func WithWorkerPool(p util.WorkerPool) Option {
	return func(c *cfg) {
		c.pool = p
	}
}

// WithChunkOrder returns option to specify merge order of the chunks. It
// must agree with the ChunkIDGenerator.
func WithChunkOrder(o union.ChunkOrder) Option {
	return func(c *cfg) {
		c.chunkOrder = o
	}
}

// WithChunkIDGenerator returns option to specify identifiers of new run
// chunks.
func WithChunkIDGenerator(g ChunkIDGenerator) Option {
	return func(c *cfg) {
		c.chunkID = g
	}
}

// WithCompression returns option to compress tree leaves with the
// initialized compression config.
func WithCompression(comp *compression.Config) Option {
	return func(c *cfg) {
		c.comp = comp
	}
}

// WithContainerOptions returns option to specify options of the physical
// chunks. Read-only mode and logger are overridden by the Repo.
func WithContainerOptions(opts ...container.Option) Option {
	return func(c *cfg) {
		c.containerOpts = opts
	}
}
