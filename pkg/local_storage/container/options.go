package container

import (
	"io/fs"
	"os"
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Option is an option of Container's constructor.
type Option func(*cfg)

type cfg struct {
	readOnly bool

	perm fs.FileMode

	noSync bool

	boltOptions *bbolt.Options

	log *zap.Logger

	metrics common.Metrics
}

func defaultCfg() *cfg {
	return &cfg{
		perm: os.ModePerm, // 0777
		boltOptions: &bbolt.Options{
			Timeout: 100 * time.Millisecond,
		},
		log:     zap.L(),
		metrics: common.NoopMetrics(),
	}
}

// WithReadOnly returns option to open the container in read-only mode.
func WithReadOnly(ro bool) Option {
	return func(c *cfg) {
		c.readOnly = ro
	}
}

// WithPermissions returns option to specify permission bits
// of the container files and directories.
func WithPermissions(perm fs.FileMode) Option {
	return func(c *cfg) {
		c.perm = perm
	}
}

// WithBoltOptions returns option to specify BoltDB options. ReadOnly and
// NoSync fields are overridden by the container.
func WithBoltOptions(opts bbolt.Options) Option {
	return func(c *cfg) {
		o := opts
		c.boltOptions = &o
	}
}

// WithOpenTimeout returns option to specify the maximum time spent waiting
// for the BoltDB file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *cfg) {
		c.boltOptions.Timeout = d
	}
}

// WithNoSync returns option to disable fsync on commit. Must be used
// only in tests.
func WithNoSync(noSync bool) Option {
	return func(c *cfg) {
		c.noSync = noSync
	}
}

// WithLogger returns option to specify Container's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l.With(zap.String("component", "Container"))
	}
}

// WithMetrics returns option to specify metrics collector.
func WithMetrics(m common.Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}
