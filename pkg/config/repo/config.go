package repoconfig

import (
	"time"

	"github.com/aimstack/aimstore/pkg/config"
)

const (
	subsection = "repo"

	// PathDefault is a default repository path.
	PathDefault = ".aim"

	// UnionCacheSizeDefault is a default number of cached union lookups.
	UnionCacheSizeDefault = 4096

	// OpenTimeoutDefault is a default timeout of the chunk file lock.
	OpenTimeoutDefault = 100 * time.Millisecond
)

// Path returns the value of "path" config parameter
// from "repo" section.
//
// Returns PathDefault if the value is not a non-empty string.
func Path(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "path")
	if v != "" {
		return v
	}

	return PathDefault
}

// ReadOnly returns the value of "read_only" config parameter
// from "repo" section.
//
// Returns false if the value is missing or not a boolean.
func ReadOnly(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "read_only")
}

// UnionCacheSize returns the value of "union_cache_size" config parameter
// from "repo" section.
//
// Returns UnionCacheSizeDefault if the value is missing or not
// a non-negative integer. Explicit zero disables the cache.
func UnionCacheSize(c *config.Config) int {
	s := c.Sub(subsection)
	if s.Value("union_cache_size") == nil {
		return UnionCacheSizeDefault
	}

	v := config.IntSafe(s, "union_cache_size")
	if v < 0 {
		return UnionCacheSizeDefault
	}

	return int(v)
}

// OpenTimeout returns the value of "open_timeout" config parameter
// from "repo" section.
//
// Returns OpenTimeoutDefault if the value is not positive duration.
func OpenTimeout(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "open_timeout")
	if v > 0 {
		return v
	}

	return OpenTimeoutDefault
}

// NoSync returns the value of "no_sync" config parameter
// from "repo" section.
func NoSync(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "no_sync")
}

// Compress returns the value of "compress" config parameter
// from "repo" section.
func Compress(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "compress")
}
