package models

import "github.com/shopspring/decimal"

// PlayerStats holds the aggregated counters for one address
type PlayerStats struct {
	Address         string          `json:"address"`
	Wins            int64           `json:"wins"`
	MatchesPlayed   int64           `json:"matchesPlayed"`
	TotalGTWon      decimal.Decimal `json:"totalGTWon"`
	TokensPurchased decimal.Decimal `json:"tokensPurchased"`
}

// NewPlayerStats returns a zero-valued record for an address
func NewPlayerStats(address string) *PlayerStats {
	return &PlayerStats{
		Address:         address,
		TotalGTWon:      decimal.Zero,
		TokensPurchased: decimal.Zero,
	}
}

// Clone returns a copy safe to mutate
func (p *PlayerStats) Clone() *PlayerStats {
	c := *p
	return &c
}

// WinRate is wins over matches played, 0 when nothing was played
func (p *PlayerStats) WinRate() float64 {
	if p.MatchesPlayed <= 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.MatchesPlayed)
}
