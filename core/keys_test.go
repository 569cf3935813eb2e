package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomKey_FixedLengthAndDistinct(t *testing.T) {
	seen := map[any]bool{}
	for i := 0; i < 100; i++ {
		key := RandomKey()
		text, ok := key.(string)
		require.True(t, ok)
		assert.Len(t, text, 20)
		assert.False(t, seen[key], "keys must not repeat across calls")
		seen[key] = true
	}
}

func TestUUIDKey_Distinct(t *testing.T) {
	first := UUIDKey()
	second := UUIDKey()
	assert.NotEqual(t, first, second)
	assert.Len(t, first, 36)
}
