package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRedisWithRetrySkipsWhenUnconfigured(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")

	// Must return immediately instead of retrying forever: a deployment
	// without Redis still has to boot and serve from the database.
	ConnectRedisWithRetry()

	require.Nil(t, GetRedisDB())
	require.Nil(t, GetRedisLock())
}

func TestRedisHelpersAreNilSafe(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	ConnectRedisWithRetry()
	require.Nil(t, GetRedisDB())

	require.NoError(t, SetRedisObject("estoque:test", map[string]string{"k": "v"}, 0))

	var dest map[string]string
	found, err := GetRedisObject("estoque:test", &dest)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, RemoveRedisKey("estoque:test"))

	seq, err := GetRedisCounter(GetRedisContext(), "estoque:test:seq")
	require.NoError(t, err)
	require.Zero(t, seq)
}
