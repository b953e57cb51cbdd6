package idgen

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		id := ID()
		require.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %v", id)
		seen[id] = struct{}{}
	}
}

func TestSecureKey(t *testing.T) {
	k, err := SecureKey(32)
	require.NoError(t, err)
	raw, err := hex.DecodeString(k)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}
