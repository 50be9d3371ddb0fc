package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicEncoderCount(t *testing.T) {
	e := NewHeuristicEncoder()

	n, err := e.Count("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.Count("hi")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.Count(strings.Repeat("a", 40))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestHeuristicEncoderTruncate(t *testing.T) {
	e := NewHeuristicEncoder()

	out, err := e.Truncate("short", 100)
	require.NoError(t, err)
	assert.Equal(t, "short", out)

	out, err = e.Truncate(strings.Repeat("a", 100), 5)
	require.NoError(t, err)
	assert.Equal(t, 20, len(out))

	out, err = e.Truncate("anything", 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
