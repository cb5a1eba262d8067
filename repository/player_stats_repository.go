package repository

import (
	"context"
	"fmt"

	"gamestake/database"
	"gamestake/models"

	"github.com/shopspring/decimal"
)

// PlayerStatsRepository implements the PlayerStatsRepository interface
type PlayerStatsRepository struct {
	q queryable
}

// NewPlayerStatsRepository creates a new player stats repository
func NewPlayerStatsRepository(db *database.DB) *PlayerStatsRepository {
	return &PlayerStatsRepository{q: db.Pool}
}

func newPlayerStatsRepositoryWithTx(tx queryable) *PlayerStatsRepository {
	return &PlayerStatsRepository{q: tx}
}

// Upsert writes the full stats row
func (r *PlayerStatsRepository) Upsert(ctx context.Context, p *models.PlayerStats) error {
	query := `
		INSERT INTO player_stats (address, wins, matches_played, total_gt_won, tokens_purchased, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, NOW())
		ON CONFLICT (address) DO UPDATE SET
			wins = EXCLUDED.wins,
			matches_played = EXCLUDED.matches_played,
			total_gt_won = EXCLUDED.total_gt_won,
			tokens_purchased = EXCLUDED.tokens_purchased,
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query,
		p.Address,
		p.Wins,
		p.MatchesPlayed,
		p.TotalGTWon.String(),
		p.TokensPurchased.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for %s: %w", p.Address, err)
	}
	return nil
}

// GetAll returns every player ordered by ranking
func (r *PlayerStatsRepository) GetAll(ctx context.Context) ([]*models.PlayerStats, error) {
	query := `
		SELECT address, wins, matches_played, total_gt_won::text, tokens_purchased::text
		FROM player_stats
		ORDER BY total_gt_won DESC, address ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query player stats: %w", err)
	}
	defer rows.Close()

	var players []*models.PlayerStats
	for rows.Next() {
		var (
			p           models.PlayerStats
			won, tokens string
		)
		if err := rows.Scan(&p.Address, &p.Wins, &p.MatchesPlayed, &won, &tokens); err != nil {
			return nil, fmt.Errorf("failed to scan player stats: %w", err)
		}
		if p.TotalGTWon, err = decimal.NewFromString(won); err != nil {
			return nil, fmt.Errorf("invalid total_gt_won for %s: %w", p.Address, err)
		}
		if p.TokensPurchased, err = decimal.NewFromString(tokens); err != nil {
			return nil, fmt.Errorf("invalid tokens_purchased for %s: %w", p.Address, err)
		}
		players = append(players, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate player stats: %w", err)
	}
	return players, nil
}
