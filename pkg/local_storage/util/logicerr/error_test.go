package logicerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	base := errors.New("write into read-only view")

	err := Wrap(base)
	require.ErrorIs(t, err, Error)
	require.ErrorIs(t, err, base)
	require.True(t, Is(fmt.Errorf("request: %w", err)))

	require.False(t, Is(base))
	require.True(t, Is(New("empty key")))
}
