package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateString_KeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", truncateString("abc", 0))
	require.Equal(t, "abc", truncateString("abc", 10))
	// "가" is three bytes; cutting at four must drop the partial second rune.
	require.Equal(t, "가", truncateString("가나", 4))
	require.Equal(t, "", truncateString("가", 2))
}

func TestTruncateError(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", truncateError(nil, 10))
	long := errors.New(strings.Repeat("x", maxErrorBytes+10))
	require.Len(t, truncateError(long, maxErrorBytes), maxErrorBytes)
}
