package testutil

import (
	"fmt"
	"time"

	"gamestake/models"

	"github.com/shopspring/decimal"
)

// Address returns a deterministic lowercase address
func Address(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

// MatchID returns a deterministic match id
func MatchID(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

// CreateTestMatch creates a match in Created status between two players
func CreateTestMatch(id string, player1, player2 string, block uint64) *models.MatchRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	order := models.BlockOrder{Block: block}
	return &models.MatchRecord{
		MatchID:      id,
		Player1:      player1,
		Player2:      player2,
		Stake:        decimal.RequireFromString("12.5"),
		Status:       models.MatchStatusCreated,
		CreatedOrder: order,
		LastOrder:    order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateSettledMatch creates a settled match won by player1
func CreateSettledMatch(id string, player1, player2 string, payout decimal.Decimal, block uint64) *models.MatchRecord {
	m := CreateTestMatch(id, player1, player2, block)
	m.Status = models.MatchStatusSettled
	m.Winner = player1
	m.Payout = &payout
	m.StakedBy = []string{player1, player2}
	m.LastOrder = models.BlockOrder{Block: block + 2, LogIndex: 1}
	return m
}

// CreateTestPlayerStats creates stats with the given record
func CreateTestPlayerStats(address string, wins, played int64, won string) *models.PlayerStats {
	p := models.NewPlayerStats(address)
	p.Wins = wins
	p.MatchesPlayed = played
	p.TotalGTWon = decimal.RequireFromString(won)
	return p
}
