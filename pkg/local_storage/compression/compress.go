package compression

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// PrefixLength is a length of compression marker in compressed data.
const PrefixLength = 4

// DefaultThreshold is a minimal size of the value to be compressed when
// Config.Threshold is not set.
const DefaultThreshold = 1024

// Config represents tree leaf compression configuration.
type Config struct {
	Enabled bool
	// Threshold is a minimal size of the value to be compressed. Smaller
	// values are stored as is: zstd frame overhead does not pay off for them.
	Threshold int

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// zstdFrameMagic contains first 4 bytes of any compressed value
// https://github.com/klauspost/compress/blob/master/zstd/framedec.go#L58 .
var zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Init initializes compression routines.
func (c *Config) Init() error {
	var err error

	if c.Enabled {
		c.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return err
		}
	}

	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}

	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return err
	}

	return nil
}

// NeedsCompression returns true if the value should be compressed.
func (c *Config) NeedsCompression(data []byte) bool {
	return c != nil && c.Enabled && len(data) >= c.Threshold
}

// IsCompressed checks whether given data is compressed.
func (c *Config) IsCompressed(data []byte) bool {
	return len(data) >= PrefixLength && bytes.Equal(data[:PrefixLength], zstdFrameMagic)
}

// Decompress decompresses data if it starts with the magic
// and returns data untouched otherwise.
func (c *Config) Decompress(data []byte) ([]byte, error) {
	if !c.IsCompressed(data) {
		return data, nil
	}
	return c.DecompressForce(data)
}

// DecompressForce decompresses given compressed data.
func (c *Config) DecompressForce(data []byte) ([]byte, error) {
	return c.decoder.DecodeAll(data, nil)
}

// Compress compresses data if it needs compression
// and returns data untouched otherwise.
func (c *Config) Compress(data []byte) []byte {
	if !c.NeedsCompression(data) {
		return data
	}
	maxSize := c.encoder.MaxEncodedSize(len(data))
	return c.encoder.EncodeAll(data, make([]byte, 0, maxSize))
}

// Close closes encoder and decoder, returns any error occurred.
func (c *Config) Close() error {
	var err error
	if c.encoder != nil {
		err = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return err
}
