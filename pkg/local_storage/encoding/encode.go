package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorruptKey is returned when the bytes can not be decoded into a Path.
var ErrCorruptKey = errors.New("corrupt key")

const (
	tagInt    byte = 0x10
	tagString byte = 0x20
	tagSep    byte = 0xfe

	escByte  byte = 0x00
	escZero  byte = 0xff
	escFinal byte = 0x01

	intLen = 8

	signBit = uint64(1) << 63
)

// Encode returns canonical byte representation of the path.
func Encode(path ...Segment) []byte {
	var n int
	for i := range path {
		n += encodedLen(path[i])
	}

	buf := make([]byte, 0, n)
	for i := range path {
		buf = AppendSegment(buf, path[i])
	}

	return buf
}

func encodedLen(s Segment) int {
	switch s.kind {
	case KindInt:
		return 1 + intLen
	case KindString:
		return 1 + len(s.s) + 2
	default:
		return 1
	}
}

// AppendSegment appends encoded segment to dst and returns the extended slice.
// Segments of undefined kind are skipped.
func AppendSegment(dst []byte, s Segment) []byte {
	switch s.kind {
	case KindInt:
		dst = append(dst, tagInt)
		dst = binary.BigEndian.AppendUint64(dst, uint64(s.i)^signBit)
	case KindString:
		dst = append(dst, tagString)
		for i := 0; i < len(s.s); i++ {
			if s.s[i] == escByte {
				dst = append(dst, escByte, escZero)
				continue
			}

			dst = append(dst, s.s[i])
		}
		dst = append(dst, escByte, escFinal)
	case KindSep:
		dst = append(dst, tagSep)
	}

	return dst
}

// Decode parses the bytes produced by Encode. Returns ErrCorruptKey if
// data is malformed.
func Decode(data []byte) (Path, error) {
	var (
		res  Path
		seg  Segment
		err  error
		rest = data
	)

	for len(rest) > 0 {
		off := len(data) - len(rest)

		seg, rest, err = DecodeFirst(rest)
		if err != nil {
			return nil, fmt.Errorf("segment at offset %d: %w", off, err)
		}

		res = append(res, seg)
	}

	return res, nil
}

// DecodeFirst decodes the first segment of data and returns the remaining bytes.
func DecodeFirst(data []byte) (Segment, []byte, error) {
	if len(data) == 0 {
		return Segment{}, nil, fmt.Errorf("%w: no data", ErrCorruptKey)
	}

	switch data[0] {
	case tagInt:
		if len(data) < 1+intLen {
			return Segment{}, nil, fmt.Errorf("%w: truncated integer", ErrCorruptKey)
		}

		v := binary.BigEndian.Uint64(data[1 : 1+intLen])

		return Int(int64(v ^ signBit)), data[1+intLen:], nil
	case tagString:
		buf := make([]byte, 0, len(data))

		for i := 1; i < len(data); i++ {
			if data[i] != escByte {
				buf = append(buf, data[i])
				continue
			}

			if i+1 >= len(data) {
				return Segment{}, nil, fmt.Errorf("%w: truncated escape sequence", ErrCorruptKey)
			}

			switch data[i+1] {
			case escZero:
				buf = append(buf, escByte)
				i++
			case escFinal:
				return String(string(buf)), data[i+2:], nil
			default:
				return Segment{}, nil, fmt.Errorf("%w: invalid escape sequence 0x%02x", ErrCorruptKey, data[i+1])
			}
		}

		return Segment{}, nil, fmt.Errorf("%w: unterminated string", ErrCorruptKey)
	case tagSep:
		return Sep(), data[1:], nil
	default:
		return Segment{}, nil, fmt.Errorf("%w: unknown segment tag 0x%02x", ErrCorruptKey, data[0])
	}
}
