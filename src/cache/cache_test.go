package cache

import (
	"testing"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sources(n int) []types.Source {
	out := make([]types.Source, n)
	for i := range out {
		out[i] = types.Source{Title: "t", Source: "s", URL: "u"}
	}
	return out
}

func TestHashIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Hash("The Sky Is Blue"), Hash("the sky is blue"))
	assert.NotEqual(t, Hash("the sky is blue"), Hash("the sky is red"))
}

func TestRoundTrip(t *testing.T) {
	c := New(nil, time.Minute)
	c.Store("The Market Crashed Today", 72, types.ConfidenceHigh, sources(3))

	entry, ok := c.Lookup("the market crashed today")
	require.True(t, ok)
	assert.Equal(t, 72, entry.Credibility)
	assert.Equal(t, types.ConfidenceHigh, entry.Confidence)
	assert.Equal(t, 3, entry.SourceCount)
	assert.Len(t, entry.Sources, 3)
}

func TestLookupMiss(t *testing.T) {
	c := New(nil, time.Minute)
	_, ok := c.Lookup("never stored")
	assert.False(t, ok)
}

func TestStoreIsIdempotentUpsert(t *testing.T) {
	c := New(nil, time.Minute)
	c.Store("claim", 40, types.ConfidenceLow, nil)
	c.Store("CLAIM", 80, types.ConfidenceHigh, sources(2))

	entry, ok := c.Lookup("claim")
	require.True(t, ok)
	assert.Equal(t, 80, entry.Credibility)
	assert.Equal(t, 2, entry.SourceCount)
}

func TestMemoryTierExpires(t *testing.T) {
	c := New(nil, 10*time.Millisecond)
	c.Store("claim", 50, types.ConfidenceMedium, nil)

	time.Sleep(25 * time.Millisecond)
	_, ok := c.Lookup("claim")
	assert.False(t, ok)
}

func TestCleanupDropsExpiredMirrorEntries(t *testing.T) {
	c := New(nil, 10*time.Millisecond)
	c.Store("claim", 50, types.ConfidenceMedium, nil)
	time.Sleep(25 * time.Millisecond)

	n, err := c.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, n) // no durable tier attached
	assert.Empty(t, c.mem)
}
