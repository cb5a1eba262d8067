package service

import (
	"context"
	"errors"
	"strings"

	"gamestake/models"
	"gamestake/store"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for player lookups that are not a hex address
var ErrInvalidAddress = errors.New("invalid player address")

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// leaderboardService implements LeaderboardService
type leaderboardService struct {
	store  *store.Store
	health *HealthTracker
}

// NewLeaderboardService creates a read service over st. health may be nil.
func NewLeaderboardService(st *store.Store, health *HealthTracker) LeaderboardService {
	return &leaderboardService{store: st, health: health}
}

// NormalizeLimit applies the default and the cap
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s *leaderboardService) Leaderboard(ctx context.Context, limit int) (*models.Leaderboard, error) {
	snap := s.store.ReadSnapshot()
	ranked := snap.Ranked(NormalizeLimit(limit))

	entries := make([]models.LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			PlayerStats: *p,
			WinRate:     p.WinRate(),
		}
	}

	return &models.Leaderboard{
		Entries:      entries,
		TotalPlayers: snap.PlayerCount(),
		TotalMatches: snap.MatchCount(),
		Status:       s.status(snap),
	}, nil
}

func (s *leaderboardService) PlayerStats(ctx context.Context, address string) (*models.PlayerView, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return nil, ErrInvalidAddress
	}
	address = strings.ToLower(address)
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}

	p, ok := s.store.ReadSnapshot().Player(address)
	if !ok {
		p = models.NewPlayerStats(address)
	}
	return &models.PlayerView{PlayerStats: *p, WinRate: p.WinRate()}, nil
}

func (s *leaderboardService) RecentMatches(ctx context.Context, limit int) (*models.RecentMatches, error) {
	snap := s.store.ReadSnapshot()
	return &models.RecentMatches{
		Matches: snap.Recent(NormalizeLimit(limit)),
		Status:  s.status(snap),
	}, nil
}

func (s *leaderboardService) Status(ctx context.Context) models.IngestionStatus {
	return s.status(s.store.ReadSnapshot())
}

func (s *leaderboardService) status(snap *store.Snapshot) models.IngestionStatus {
	lastBlock := snap.LastOrder().Block
	if s.health == nil {
		return models.IngestionStatus{State: models.IngestionStateHealthy, LastBlock: lastBlock}
	}
	return s.health.Status(lastBlock)
}
