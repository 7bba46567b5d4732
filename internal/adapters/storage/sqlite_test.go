package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyexpiry/internal/adapters/storage"
	"github.com/alejandrodnm/polyexpiry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePoll(id string, startedAt time.Time, matched ...domain.Market) domain.PollRecord {
	return domain.PollRecord{
		ID:        id,
		Source:    "rest",
		StartedAt: startedAt,
		Duration:  1500 * time.Millisecond,
		Attempts:  1,
		Fetched:   120,
		Matched:   matched,
	}
}

func makeMarket(id string, expiresAt time.Time) domain.Market {
	return domain.Market{
		ID:            id,
		Question:      "Will " + id + " happen?",
		Slug:          "will-" + id + "-happen",
		OutcomePrices: []float64{0.42, 0.58},
		ExpiresAt:     expiresAt,
	}
}

func newStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_SaveAndGetHistory(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	a := makeMarket("a", now.Add(time.Hour))
	b := makeMarket("b", now.Add(90*time.Minute))
	require.NoError(t, db.SavePoll(context.Background(), makePoll("p1", now, a, b)))

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)

	p := history[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "rest", p.Source)
	assert.True(t, now.Equal(p.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, p.Duration)
	assert.Equal(t, 120, p.Fetched)
	require.Len(t, p.Matched, 2)
	assert.Equal(t, "a", p.Matched[0].ID)
	assert.Equal(t, "b", p.Matched[1].ID)
	assert.Equal(t, []float64{0.42, 0.58}, p.Matched[0].OutcomePrices)
	assert.True(t, a.ExpiresAt.Equal(p.Matched[0].ExpiresAt))
}

func TestSQLiteStorage_FailedPoll(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC()

	poll := makePoll("p-err", now)
	poll.Attempts = 3
	poll.Fetched = 0
	poll.Err = "rest: fetch failed after 3 attempts: transport: status 503"
	require.NoError(t, db.SavePoll(context.Background(), poll))

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].Attempts)
	assert.Equal(t, poll.Err, history[0].Err)
	assert.Empty(t, history[0].Matched)
}

func TestSQLiteStorage_GetHistory_EmptyRange(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC()
	require.NoError(t, db.SavePoll(context.Background(), makePoll("p1", now, makeMarket("a", now))))

	history, err := db.GetHistory(context.Background(), now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteStorage_MultiplePollsNewestFirst(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC()

	for i, id := range []string{"p1", "p2", "p3"} {
		started := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.SavePoll(context.Background(), makePoll(id, started, makeMarket(id+"-m", started.Add(time.Hour)))))
	}

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "p3", history[0].ID)
	assert.Equal(t, "p1", history[2].ID)
	for _, p := range history {
		require.Len(t, p.Matched, 1)
		assert.Equal(t, p.ID+"-m", p.Matched[0].ID)
	}
}

func TestSQLiteStorage_DuplicatePollID(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC()
	require.NoError(t, db.SavePoll(context.Background(), makePoll("p1", now)))
	assert.Error(t, db.SavePoll(context.Background(), makePoll("p1", now)))
}

func TestSQLiteStorage_MarketWithoutExpiration(t *testing.T) {
	db := newStorage(t)
	now := time.Now().UTC()
	require.NoError(t, db.SavePoll(context.Background(), makePoll("p1", now, domain.Market{ID: "x", Question: "Q?", Slug: "q"})))

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, history[0].Matched, 1)
	assert.False(t, history[0].Matched[0].HasExpiration())
	assert.Nil(t, history[0].Matched[0].OutcomePrices)
}
