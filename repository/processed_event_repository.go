package repository

import (
	"context"
	"fmt"

	"gamestake/database"
	"gamestake/models"

	"github.com/jackc/pgx/v5"
)

// ProcessedEventRepository implements the ProcessedEventRepository interface
type ProcessedEventRepository struct {
	q queryable
}

// NewProcessedEventRepository creates a new processed event repository
func NewProcessedEventRepository(db *database.DB) *ProcessedEventRepository {
	return &ProcessedEventRepository{q: db.Pool}
}

func newProcessedEventRepositoryWithTx(tx queryable) *ProcessedEventRepository {
	return &ProcessedEventRepository{q: tx}
}

// MarkProcessed stores identities in one batch. Already stored identities are ignored.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, events []models.ProcessedEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO processed_events (tx_hash, log_index, block_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(query, ev.Identity.TxHash, int32(ev.Identity.LogIndex), int64(ev.Order.Block))
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for _, ev := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to mark %s processed: %w", ev.Identity, err)
		}
	}
	return nil
}

// ListSince returns identities at or above block, in block order
func (r *ProcessedEventRepository) ListSince(ctx context.Context, block uint64) ([]models.ProcessedEvent, error) {
	query := `
		SELECT tx_hash, log_index, block_number
		FROM processed_events
		WHERE block_number >= $1
		ORDER BY block_number, log_index
	`

	rows, err := r.q.Query(ctx, query, int64(block))
	if err != nil {
		return nil, fmt.Errorf("failed to query processed events: %w", err)
	}
	defer rows.Close()

	var events []models.ProcessedEvent
	for rows.Next() {
		var (
			txHash   string
			logIndex int32
			blockNum int64
		)
		if err := rows.Scan(&txHash, &logIndex, &blockNum); err != nil {
			return nil, fmt.Errorf("failed to scan processed event: %w", err)
		}
		events = append(events, models.ProcessedEvent{
			Identity: models.Identity{TxHash: txHash, LogIndex: uint(logIndex)},
			Order:    models.BlockOrder{Block: uint64(blockNum), LogIndex: uint(logIndex)},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate processed events: %w", err)
	}
	return events, nil
}

// PruneBefore deletes identities older than block
func (r *ProcessedEventRepository) PruneBefore(ctx context.Context, block uint64) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM processed_events WHERE block_number < $1`, int64(block))
	if err != nil {
		return 0, fmt.Errorf("failed to prune processed events: %w", err)
	}
	return result.RowsAffected(), nil
}
