package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsSqrtPolicy(t *testing.T) {
	c := Default()
	require.Equal(t, BBlkSqrt, c.BBlkPolicy)
	require.False(t, c.EnableShift)
}

func TestFromEnvOverlaysFixedPolicy(t *testing.T) {
	t.Setenv("TINYZKP_BBLK_POLICY", "fixed:256")
	t.Setenv("TINYZKP_ENABLE_SHIFT_OPENING", "true")
	t.Setenv("TINYZKP_MAX_N", "1048576")

	c := FromEnv()
	require.Equal(t, BBlkFixed, c.BBlkPolicy)
	require.Equal(t, uint64(256), c.FixedBBlk)
	require.True(t, c.EnableShift)
	require.Equal(t, uint64(1048576), c.MaxN)
}

func TestFromEnvIgnoresGarbageBool(t *testing.T) {
	t.Setenv("TINYZKP_ENABLE_LOOKUPS", "not-a-bool")
	c := FromEnv()
	require.False(t, c.EnableLookups)
}

func TestCachedPlanRoundTrips(t *testing.T) {
	p := CachedPlan{ReqRows: 3000, ReqBBlk: 73, ReqK: 3, N: 4096, BBlk: 73, OmegaHex: "0xabc"}

	b, err := EncodeCachedPlan(p)
	require.NoError(t, err)

	decoded, err := DecodeCachedPlan(b)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}
