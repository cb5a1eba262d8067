package service

import (
	"context"

	"gamestake/models"
)

// MatchRepository defines the interface for match record persistence
type MatchRepository interface {
	// Upsert inserts the match or replaces the stored copy
	Upsert(ctx context.Context, match *models.MatchRecord) error

	// GetByID retrieves a match, nil if unknown
	GetByID(ctx context.Context, matchID string) (*models.MatchRecord, error)

	// GetAll returns every stored match
	GetAll(ctx context.Context) ([]*models.MatchRecord, error)
}

// PlayerStatsRepository defines the interface for player statistics persistence
type PlayerStatsRepository interface {
	// Upsert inserts the stats or replaces the stored copy
	Upsert(ctx context.Context, stats *models.PlayerStats) error

	// GetAll returns every stored player
	GetAll(ctx context.Context) ([]*models.PlayerStats, error)
}

// ProcessedEventRepository records which event identities are folded into state
type ProcessedEventRepository interface {
	// MarkProcessed stores identities, ignoring ones already stored
	MarkProcessed(ctx context.Context, events []models.ProcessedEvent) error

	// ListSince returns identities at or above the given block
	ListSince(ctx context.Context, block uint64) ([]models.ProcessedEvent, error)

	// PruneBefore deletes identities below the given block
	PruneBefore(ctx context.Context, block uint64) (int64, error)
}

// CheckpointRepository stores the single ingestion checkpoint
type CheckpointRepository interface {
	// Get returns the checkpoint, nil if none was saved
	Get(ctx context.Context) (*models.Checkpoint, error)

	// Save replaces the checkpoint
	Save(ctx context.Context, checkpoint *models.Checkpoint) error
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	MatchRepository() MatchRepository
	PlayerStatsRepository() PlayerStatsRepository
	ProcessedEventRepository() ProcessedEventRepository
	CheckpointRepository() CheckpointRepository
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LeaderboardService answers read queries from the latest snapshot
type LeaderboardService interface {
	// Leaderboard returns the top players by totalGTWon
	Leaderboard(ctx context.Context, limit int) (*models.Leaderboard, error)

	// PlayerStats returns one player's stats, zero-valued for unknown addresses
	PlayerStats(ctx context.Context, address string) (*models.PlayerView, error)

	// RecentMatches returns the most recently updated matches
	RecentMatches(ctx context.Context, limit int) (*models.RecentMatches, error)

	// Status reports ingestion health
	Status(ctx context.Context) models.IngestionStatus
}
