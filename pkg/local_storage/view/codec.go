package view

import (
	"fmt"
	"sync"

	"github.com/aimstack/aimstore/pkg/local_storage/compression"
	"github.com/fxamacker/cbor/v2"
)

// CBOR tag numbers of the container markers stored at the node keys.
const (
	tagMap  uint64 = 60001
	tagList uint64 = 60002
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor decoding mode: %v", err))
	}
}

// codec encodes tree values.
type codec struct {
	comp *compression.Config
}

var (
	defaultCodecOnce sync.Once
	defaultCodecVal  *codec
)

// defaultCodec returns codec which does not compress values but is able to
// decompress them.
func defaultCodec() *codec {
	defaultCodecOnce.Do(func() {
		c := new(compression.Config)
		if err := c.Init(); err != nil {
			panic(fmt.Sprintf("init decompressor: %v", err))
		}
		defaultCodecVal = newCodec(c)
	})
	return defaultCodecVal
}

func newCodec(c *compression.Config) *codec {
	return &codec{comp: c}
}

// nodeKind is a type of the tree node.
type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindMap
	kindList
)

func (c *codec) encodeMarker(k nodeKind) ([]byte, error) {
	num := tagMap
	if k == kindList {
		num = tagList
	}
	return encMode.Marshal(cbor.Tag{Number: num})
}

func (c *codec) encodeLeaf(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value of type %T: %w", v, err)
	}

	return c.comp.Compress(data), nil
}

// decode decodes stored value. Container markers are reported by kind.
func (c *codec) decode(data []byte) (any, nodeKind, error) {
	data, err := c.comp.Decompress(data)
	if err != nil {
		return nil, kindLeaf, fmt.Errorf("decompress value: %w", err)
	}

	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, kindLeaf, fmt.Errorf("decode value: %w", err)
	}

	if t, ok := v.(cbor.Tag); ok {
		switch t.Number {
		case tagMap:
			return nil, kindMap, nil
		case tagList:
			return nil, kindList, nil
		}
	}

	return v, kindLeaf, nil
}
