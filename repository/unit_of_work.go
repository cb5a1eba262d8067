package repository

import (
	"context"
	"fmt"

	"gamestake/database"
	"gamestake/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	matchRepo          service.MatchRepository
	playerStatsRepo    service.PlayerStatsRepository
	processedEventRepo service.ProcessedEventRepository
	checkpointRepo     service.CheckpointRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

type unitOfWorkFactory struct {
	db *database.DB
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{db: f.db}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.matchRepo = newMatchRepositoryWithTx(tx)
	u.playerStatsRepo = newPlayerStatsRepositoryWithTx(tx)
	u.processedEventRepo = newProcessedEventRepositoryWithTx(tx)
	u.checkpointRepo = newCheckpointRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// MatchRepository returns the match repository for this unit of work
func (u *unitOfWork) MatchRepository() service.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

// PlayerStatsRepository returns the player stats repository for this unit of work
func (u *unitOfWork) PlayerStatsRepository() service.PlayerStatsRepository {
	if u.playerStatsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playerStatsRepo
}

// ProcessedEventRepository returns the processed event repository for this unit of work
func (u *unitOfWork) ProcessedEventRepository() service.ProcessedEventRepository {
	if u.processedEventRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.processedEventRepo
}

// CheckpointRepository returns the checkpoint repository for this unit of work
func (u *unitOfWork) CheckpointRepository() service.CheckpointRepository {
	if u.checkpointRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.checkpointRepo
}
