package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusCreated  MatchStatus = "created"
	MatchStatusStaked   MatchStatus = "staked"
	MatchStatusSettled  MatchStatus = "settled"
	MatchStatusRefunded MatchStatus = "refunded"
)

// rank positions statuses in the partial order Created < Staked < {Settled, Refunded}
func (s MatchStatus) rank() int {
	switch s {
	case MatchStatusCreated:
		return 1
	case MatchStatusStaked:
		return 2
	case MatchStatusSettled, MatchStatusRefunded:
		return 3
	}
	return 0
}

// IsTerminal reports whether no transition out of the status is allowed
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusSettled || s == MatchStatusRefunded
}

// CanTransitionTo reports whether moving from s to next respects the lifecycle order
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// ZeroAddress is how an absent player is rendered
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// MatchRecord is the aggregated state of one match
type MatchRecord struct {
	MatchID  string           `json:"matchId"`
	Player1  string           `json:"player1"`
	Player2  string           `json:"player2,omitempty"`
	Stake    decimal.Decimal  `json:"stake"`
	Status   MatchStatus      `json:"status"`
	Winner   string           `json:"winner,omitempty"`
	Payout   *decimal.Decimal `json:"payout,omitempty"`
	StakedBy []string         `json:"stakedBy,omitempty"`

	CreatedOrder BlockOrder `json:"createdOrder"`
	LastOrder    BlockOrder `json:"lastOrder"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy safe to mutate
func (m *MatchRecord) Clone() *MatchRecord {
	c := *m
	if m.Payout != nil {
		p := *m.Payout
		c.Payout = &p
	}
	if m.StakedBy != nil {
		c.StakedBy = append([]string(nil), m.StakedBy...)
	}
	return &c
}

// HasPlayer2 reports whether the second seat is filled
func (m *MatchRecord) HasPlayer2() bool {
	return m.Player2 != "" && m.Player2 != ZeroAddress
}

// IsParticipant checks if an address plays in the match
func (m *MatchRecord) IsParticipant(address string) bool {
	return address == m.Player1 || (m.HasPlayer2() && address == m.Player2)
}

// Opponent returns the other participant, or "" when the address does not play
func (m *MatchRecord) Opponent(address string) string {
	switch address {
	case m.Player1:
		if m.HasPlayer2() {
			return m.Player2
		}
	case m.Player2:
		return m.Player1
	}
	return ""
}

// HasStaked reports whether the address' stake leg was observed
func (m *MatchRecord) HasStaked(address string) bool {
	for _, a := range m.StakedBy {
		if a == address {
			return true
		}
	}
	return false
}
