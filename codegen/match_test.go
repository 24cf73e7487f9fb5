package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateMatchesWildcards(t *testing.T) {
	require.True(t, templateMatches([]byte{4, 2, 2, 0}, []byte{4, 0, 0, 0}))
	require.True(t, templateMatches([]byte{4, 2, 2, 0}, []byte{0, 0, 0, 0}))
	require.False(t, templateMatches([]byte{4, 2, 2, 0}, []byte{3, 0, 0, 0}))
	require.False(t, templateMatches([]byte{4, 2, 2, 0}, []byte{4, 1, 0, 0}))
}

func TestTemplateMatchesExactOnEveryPosition(t *testing.T) {
	require.True(t, templateMatches([]byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}))
	require.False(t, templateMatches([]byte{1, 2, 3, 4}, []byte{1, 2, 3, 5}))
}
