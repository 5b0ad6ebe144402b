package mode

// Mode represents enumeration of container open modes.
type Mode uint32

const (
	// ReadWrite is a Mode value for container that is available
	// for read and write operations. Only one process may hold
	// a chunk in this mode at a time.
	ReadWrite Mode = iota

	// ReadOnly is a Mode value for container that does not
	// accept write operations but is readable.
	ReadOnly
)

// FromReadOnly converts read-only flag to the Mode.
func FromReadOnly(readOnly bool) Mode {
	if readOnly {
		return ReadOnly
	}

	return ReadWrite
}

// ReadOnly returns true if the mode does not allow writes.
func (m Mode) ReadOnly() bool {
	return m == ReadOnly
}

func (m Mode) String() string {
	switch m {
	default:
		return "UNDEFINED"
	case ReadWrite:
		return "READ_WRITE"
	case ReadOnly:
		return "READ_ONLY"
	}
}
