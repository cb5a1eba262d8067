package repository

import (
	"context"
	"errors"
	"fmt"

	"gamestake/database"
	"gamestake/models"

	"github.com/jackc/pgx/v5"
)

// CheckpointRepository implements the CheckpointRepository interface
type CheckpointRepository struct {
	q queryable
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(db *database.DB) *CheckpointRepository {
	return &CheckpointRepository{q: db.Pool}
}

func newCheckpointRepositoryWithTx(tx queryable) *CheckpointRepository {
	return &CheckpointRepository{q: tx}
}

// Get returns the saved checkpoint, nil if there is none
func (r *CheckpointRepository) Get(ctx context.Context) (*models.Checkpoint, error) {
	query := `
		SELECT checkpoint_block, last_block, last_log_index, updated_at
		FROM ingest_checkpoint
		WHERE id = 1
	`

	var (
		cp               models.Checkpoint
		block, lastBlock int64
		lastLogIndex     int32
	)
	err := r.q.QueryRow(ctx, query).Scan(&block, &lastBlock, &lastLogIndex, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	cp.Block = uint64(block)
	cp.LastOrder = models.BlockOrder{Block: uint64(lastBlock), LogIndex: uint(lastLogIndex)}
	return &cp, nil
}

// Save replaces the checkpoint row
func (r *CheckpointRepository) Save(ctx context.Context, cp *models.Checkpoint) error {
	query := `
		INSERT INTO ingest_checkpoint (id, checkpoint_block, last_block, last_log_index, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			checkpoint_block = EXCLUDED.checkpoint_block,
			last_block = EXCLUDED.last_block,
			last_log_index = EXCLUDED.last_log_index,
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query, int64(cp.Block), int64(cp.LastOrder.Block), int32(cp.LastOrder.LogIndex))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %d: %w", cp.Block, err)
	}
	return nil
}
