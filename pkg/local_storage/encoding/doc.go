/*
Package encoding maps hierarchical keys to flat byte strings and back.

A hierarchical key is a Path: a sequence of typed segments (integers, strings
or separator markers). Encoding is canonical and order-preserving: byte-wise
order of encoded paths matches depth-first, left-to-right order of the paths,
and the encoding of a path is a byte prefix of exactly the encodings of its
descendants. It lets a range scan of a flat store over Encode(P) enumerate the
subtree of P and nothing else.

Segment layout:

	int:    0x10 | 8 byte big-endian value with the sign bit flipped
	string: 0x20 | bytes, 0x00 escaped as 0x00 0xFF | 0x00 0x01
	sep:    0xFE
*/
package encoding
