package encoding

import "bytes"

// PrefixEnd returns the smallest key greater than every key starting with
// prefix. Returns nil if there is no such key.
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)

	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}

	return nil
}
