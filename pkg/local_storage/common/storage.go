package common

// Iterator iterates over an ordered set of key-value pairs. A fresh iterator
// must call Next once to advance to the first pair. Iterator must only be used
// by one goroutine at a time and must be closed after use: it may hold read
// transactions of the underlying files.
type Iterator interface {
	// Next advances the iterator. It returns false when there are no more
	// pairs or an error was encountered, Err tells these cases apart.
	Next() bool
	// Key returns the current key. The slice stays valid after Next.
	Key() []byte
	// Value returns the current value. The slice stays valid after Next.
	Value() []byte
	// Seek repositions the iterator so that the following Next moves to
	// the first pair whose key is not less than key.
	Seek(key []byte)
	// Err returns the error encountered during iteration, if any.
	Err() error
	// Close releases the resources held by the iterator.
	Close() error
}

// Tombstoner is implemented by iterators which may yield deleted entries.
// Merging iterators skip an entry when its winning source reports a tombstone.
type Tombstoner interface {
	Tombstone() bool
}

// Reader represents read access to a byte-keyed ordered map.
type Reader interface {
	// Get returns the value stored for the key. Returns ErrNotFound if
	// the key is missing.
	Get(key []byte) ([]byte, error)
	// Range returns entries whose key starts with prefix in ascending byte
	// order. Each call yields a fresh cursor.
	Range(prefix []byte) (Iterator, error)
}

// Container represents key-value storage bound to a file system location.
// It is a building block of the repository: physical chunks and union
// containers implement it.
type Container interface {
	Reader

	// Set stages the value for the key. Returns ErrReadOnly in
	// read-only mode.
	Set(key, value []byte) error
	// Delete stages removal of the key. Returns ErrReadOnly in
	// read-only mode.
	Delete(key []byte) error
	// Commit durably persists staged writes.
	Commit() error
	Close() error

	Path() string
	ReadOnly() bool
}
