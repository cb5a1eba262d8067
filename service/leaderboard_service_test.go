package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gamestake/models"
	"gamestake/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func address(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func seededStore(t *testing.T, players []*models.PlayerStats, matches []*models.MatchRecord) *store.Store {
	t.Helper()
	st := store.New()
	require.NoError(t, st.Restore(&store.Seed{
		Players:   players,
		Matches:   matches,
		LastOrder: models.BlockOrder{Block: 77},
	}))
	return st
}

func stats(addr string, wins, played int64, won int64) *models.PlayerStats {
	p := models.NewPlayerStats(addr)
	p.Wins = wins
	p.MatchesPlayed = played
	p.TotalGTWon = decimal.NewFromInt(won)
	return p
}

func TestLeaderboardService_Leaderboard(t *testing.T) {
	st := seededStore(t, []*models.PlayerStats{
		stats(address(1), 1, 1, 100),
		stats(address(2), 0, 1, 0),
		stats(address(3), 2, 4, 300),
	}, []*models.MatchRecord{{MatchID: "0x01", Status: models.MatchStatusSettled}})
	svc := NewLeaderboardService(st, nil)

	board, err := svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)

	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, address(3), board.Entries[0].Address)
	assert.InDelta(t, 0.5, board.Entries[0].WinRate, 1e-9)
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Equal(t, address(1), board.Entries[1].Address)
	assert.InDelta(t, 1.0, board.Entries[1].WinRate, 1e-9)

	assert.Equal(t, 3, board.TotalPlayers)
	assert.Equal(t, 1, board.TotalMatches)
	assert.Equal(t, uint64(77), board.Status.LastBlock)
	assert.Equal(t, models.IngestionStateHealthy, board.Status.State)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 25, NormalizeLimit(25))
	assert.Equal(t, MaxLimit, NormalizeLimit(5000))
}

func TestLeaderboardService_PlayerStats(t *testing.T) {
	known := "0x00000000000000000000000000000000000000aa"
	st := seededStore(t, []*models.PlayerStats{stats(known, 1, 2, 10)}, nil)
	svc := NewLeaderboardService(st, nil)
	ctx := context.Background()

	t.Run("mixed case address is normalized", func(t *testing.T) {
		view, err := svc.PlayerStats(ctx, "0x00000000000000000000000000000000000000AA")
		require.NoError(t, err)
		assert.Equal(t, known, view.Address)
		assert.Equal(t, int64(1), view.Wins)
		assert.InDelta(t, 0.5, view.WinRate, 1e-9)
	})

	t.Run("unknown address is a zero record", func(t *testing.T) {
		view, err := svc.PlayerStats(ctx, address(9))
		require.NoError(t, err)
		assert.Equal(t, address(9), view.Address)
		assert.Equal(t, int64(0), view.MatchesPlayed)
		assert.True(t, view.TotalGTWon.IsZero())
		assert.Equal(t, 0.0, view.WinRate)
	})

	t.Run("invalid address", func(t *testing.T) {
		for _, in := range []string{"", "0x123", "not-an-address", "0xzz000000000000000000000000000000000000aa"} {
			_, err := svc.PlayerStats(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidAddress, in)
		}
	})
}

func TestLeaderboardService_RecentMatches(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var matches []*models.MatchRecord
	for i := 1; i <= 15; i++ {
		matches = append(matches, &models.MatchRecord{
			MatchID:   fmt.Sprintf("0x%02d", i),
			Status:    models.MatchStatusCreated,
			LastOrder: models.BlockOrder{Block: uint64(i)},
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	svc := NewLeaderboardService(seededStore(t, nil, matches), nil)

	recent, err := svc.RecentMatches(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent.Matches, DefaultLimit)
	assert.Equal(t, "0x15", recent.Matches[0].MatchID)
	assert.Equal(t, "0x06", recent.Matches[9].MatchID)
}

func TestLeaderboardService_StatusFromHealth(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	health := NewHealthTracker(time.Minute, clock)
	svc := NewLeaderboardService(seededStore(t, nil, nil), health)

	assert.Equal(t, models.IngestionStateHealthy, svc.Status(context.Background()).State)

	health.ObserveSourceError(fmt.Errorf("dial tcp: connection refused"))
	status := svc.Status(context.Background())
	assert.Equal(t, models.IngestionStateDegraded, status.State)
	assert.Equal(t, "dial tcp: connection refused", status.LastError)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, models.IngestionStateStale, svc.Status(context.Background()).State)
}
