package mode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	require.Equal(t, ReadOnly, FromReadOnly(true))
	require.Equal(t, ReadWrite, FromReadOnly(false))

	require.True(t, ReadOnly.ReadOnly())
	require.False(t, ReadWrite.ReadOnly())

	require.Equal(t, "READ_ONLY", ReadOnly.String())
	require.Equal(t, "READ_WRITE", ReadWrite.String())
	require.Equal(t, "UNDEFINED", Mode(42).String())
}
