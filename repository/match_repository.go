package repository

import (
	"context"
	"errors"
	"fmt"

	"gamestake/database"
	"gamestake/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `
	match_id, player1, player2, stake::text, status, winner, payout::text, staked_by,
	created_block, created_log_index, last_block, last_log_index, created_at, updated_at`

// Upsert inserts the match or replaces the stored copy
func (r *MatchRepository) Upsert(ctx context.Context, m *models.MatchRecord) error {
	query := `
		INSERT INTO match_records (
			match_id, player1, player2, stake, status, winner, payout, staked_by,
			created_block, created_log_index, last_block, last_log_index, created_at, updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (match_id) DO UPDATE SET
			player2 = EXCLUDED.player2,
			status = EXCLUDED.status,
			winner = EXCLUDED.winner,
			payout = EXCLUDED.payout,
			staked_by = EXCLUDED.staked_by,
			last_block = EXCLUDED.last_block,
			last_log_index = EXCLUDED.last_log_index,
			updated_at = EXCLUDED.updated_at
	`

	var payout *string
	if m.Payout != nil {
		s := m.Payout.String()
		payout = &s
	}
	stakedBy := m.StakedBy
	if stakedBy == nil {
		stakedBy = []string{}
	}

	_, err := r.q.Exec(ctx, query,
		m.MatchID,
		m.Player1,
		nullString(m.Player2),
		m.Stake.String(),
		string(m.Status),
		nullString(m.Winner),
		payout,
		stakedBy,
		int64(m.CreatedOrder.Block),
		int32(m.CreatedOrder.LogIndex),
		int64(m.LastOrder.Block),
		int32(m.LastOrder.LogIndex),
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", m.MatchID, err)
	}
	return nil
}

// GetByID retrieves a match by its id
func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM match_records WHERE match_id = $1`

	m, err := scanMatch(r.q.QueryRow(ctx, query, matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	return m, nil
}

// GetAll returns every stored match
func (r *MatchRepository) GetAll(ctx context.Context) ([]*models.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM match_records ORDER BY last_block, last_log_index`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.MatchRecord
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

func scanMatch(row pgx.Row) (*models.MatchRecord, error) {
	var (
		m                             models.MatchRecord
		player2, winner, payout       *string
		stake, status                 string
		createdBlock, lastBlock       int64
		createdLogIndex, lastLogIndex int32
	)

	err := row.Scan(
		&m.MatchID,
		&m.Player1,
		&player2,
		&stake,
		&status,
		&winner,
		&payout,
		&m.StakedBy,
		&createdBlock,
		&createdLogIndex,
		&lastBlock,
		&lastLogIndex,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.Stake, err = decimal.NewFromString(stake); err != nil {
		return nil, fmt.Errorf("invalid stake %q: %w", stake, err)
	}
	if payout != nil {
		p, err := decimal.NewFromString(*payout)
		if err != nil {
			return nil, fmt.Errorf("invalid payout %q: %w", *payout, err)
		}
		m.Payout = &p
	}
	if player2 != nil {
		m.Player2 = *player2
	}
	if winner != nil {
		m.Winner = *winner
	}
	if len(m.StakedBy) == 0 {
		m.StakedBy = nil
	}
	m.Status = models.MatchStatus(status)
	m.CreatedOrder = models.BlockOrder{Block: uint64(createdBlock), LogIndex: uint(createdLogIndex)}
	m.LastOrder = models.BlockOrder{Block: uint64(lastBlock), LogIndex: uint(lastLogIndex)}
	return &m, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
