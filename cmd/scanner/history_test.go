package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

func TestRenderHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, nil))
	assert.Equal(t, "no polls in the last 24h\n", buf.String())
}

func TestRenderHistory_ListsPollsAndAlertedMarkets(t *testing.T) {
	started := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	polls := []domain.PollRecord{
		{
			ID: "p-2", Source: "rest", StartedAt: started, Duration: 420 * time.Millisecond,
			Attempts: 1, Fetched: 3,
			Matched: []domain.Market{{ID: "501", Question: "Will Bitcoin close above $60,000?", Slug: "bitcoin-above-60k"}},
		},
		{
			ID: "p-1", Source: "graphql", StartedAt: started.Add(-5 * time.Minute),
			Attempts: 3, Err: "graphql: fetch failed after 3 attempts",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, polls))
	out := buf.String()

	assert.Contains(t, out, "2026-10-16 12:00:00")
	assert.Contains(t, out, "graphql")
	assert.Contains(t, out, "fetch failed after 3 attempts")
	assert.Contains(t, out, "Alerted markets:")
	assert.Contains(t, out, "12:00  Will Bitcoin close above $60,000? (bitcoin-above-60k)")
}
