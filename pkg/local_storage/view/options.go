package view

import (
	"github.com/aimstack/aimstore/pkg/local_storage/compression"
)

// Option is an option of the view constructor.
type Option func(*cfg)

type cfg struct {
	codec *codec
}

func defaultCfg() *cfg {
	return &cfg{codec: defaultCodec()}
}

// WithCompression returns option to compress tree leaf values with the
// initialized compression config.
func WithCompression(c *compression.Config) Option {
	return func(cfg *cfg) {
		if c == nil {
			cfg.codec = defaultCodec()
			return
		}
		cfg.codec = newCodec(c)
	}
}
