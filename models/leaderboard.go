package models

import "time"

// LeaderboardEntry is a ranked player row
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	PlayerStats
	WinRate float64 `json:"winRate"`
}

// PlayerView is a single player lookup result
type PlayerView struct {
	PlayerStats
	WinRate float64 `json:"winRate"`
}

// IngestionState summarizes how current the served data is
type IngestionState string

const (
	IngestionStateHealthy  IngestionState = "healthy"
	IngestionStateDegraded IngestionState = "degraded"
	IngestionStateStale    IngestionState = "stale"
)

// IngestionStatus is attached to query responses so readers can tell how fresh they are
type IngestionStatus struct {
	State            IngestionState `json:"state"`
	LastBlock        uint64         `json:"lastBlock"`
	LastEventAt      *time.Time     `json:"lastEventAt,omitempty"`
	LastError        string         `json:"lastError,omitempty"`
	LastErrorAt      *time.Time     `json:"lastErrorAt,omitempty"`
	PendingEvents    int            `json:"pendingEvents"`
	ConsistencyFault int64          `json:"consistencyFaults"`
}

// Leaderboard is the response of the ranked query
type Leaderboard struct {
	Entries      []LeaderboardEntry `json:"leaderboard"`
	TotalPlayers int                `json:"totalPlayers"`
	TotalMatches int                `json:"totalMatches"`
	Status       IngestionStatus    `json:"status"`
}

// RecentMatches is the response of the recent-activity query
type RecentMatches struct {
	Matches []*MatchRecord  `json:"recentMatches"`
	Status  IngestionStatus `json:"status"`
}
