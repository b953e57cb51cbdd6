package style

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoS(t *testing.T) {
	require.Equal(t, "\033[0m", doS(nil))
	require.Equal(t, "\033[1;32m", doS([]int{Bold, Green}))
}

func TestStatus(t *testing.T) {
	require.Contains(t, Status(true, "logged out"), "logged out")
	require.Contains(t, Status(false, "blocked"), "blocked")
}
