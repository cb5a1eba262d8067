package store

import (
	"sort"
	"sync"

	"gamestake/models"
)

// Snapshot is an immutable view of the aggregate tables. Records handed out
// by its accessors are copies, so callers may keep or modify them freely.
type Snapshot struct {
	version    uint64
	matches    map[string]*models.MatchRecord
	players    map[string]*models.PlayerStats
	lastOrder  models.BlockOrder
	checkpoint uint64

	rankOnce   sync.Once
	ranked     []*models.PlayerStats
	recentOnce sync.Once
	recent     []*models.MatchRecord
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		matches: make(map[string]*models.MatchRecord),
		players: make(map[string]*models.PlayerStats),
	}
}

// Version increases by one with every committed mutation
func (s *Snapshot) Version() uint64 {
	return s.version
}

// LastOrder is the highest block order applied so far
func (s *Snapshot) LastOrder() models.BlockOrder {
	return s.lastOrder
}

// Checkpoint is the block a restarted source must resume from
func (s *Snapshot) Checkpoint() uint64 {
	return s.checkpoint
}

// MatchCount returns the number of known matches
func (s *Snapshot) MatchCount() int {
	return len(s.matches)
}

// PlayerCount returns the number of known players
func (s *Snapshot) PlayerCount() int {
	return len(s.players)
}

// Match looks up a match by id
func (s *Snapshot) Match(matchID string) (*models.MatchRecord, bool) {
	m, ok := s.matches[matchID]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Player looks up stats by lowercase address
func (s *Snapshot) Player(address string) (*models.PlayerStats, bool) {
	p, ok := s.players[address]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Ranked returns up to limit players ordered by totalGTWon descending, ties
// broken by address. A non-positive limit returns everyone.
func (s *Snapshot) Ranked(limit int) []*models.PlayerStats {
	s.rankOnce.Do(func() {
		s.ranked = make([]*models.PlayerStats, 0, len(s.players))
		for _, p := range s.players {
			s.ranked = append(s.ranked, p)
		}
		sort.Slice(s.ranked, func(i, j int) bool {
			a, b := s.ranked[i], s.ranked[j]
			if c := a.TotalGTWon.Cmp(b.TotalGTWon); c != 0 {
				return c > 0
			}
			return a.Address < b.Address
		})
	})
	return clonePlayers(head(s.ranked, limit))
}

// Recent returns up to limit matches, most recently updated first
func (s *Snapshot) Recent(limit int) []*models.MatchRecord {
	s.recentOnce.Do(func() {
		s.recent = make([]*models.MatchRecord, 0, len(s.matches))
		for _, m := range s.matches {
			s.recent = append(s.recent, m)
		}
		sort.Slice(s.recent, func(i, j int) bool {
			a, b := s.recent[i], s.recent[j]
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			if a.LastOrder != b.LastOrder {
				return b.LastOrder.Less(a.LastOrder)
			}
			return a.MatchID < b.MatchID
		})
	})
	src := head(s.recent, limit)
	out := make([]*models.MatchRecord, len(src))
	for i, m := range src {
		out[i] = m.Clone()
	}
	return out
}

// apply builds the successor snapshot. Cost is a shallow copy of both tables.
func (s *Snapshot) apply(c *Changes) *Snapshot {
	next := &Snapshot{
		version:    s.version + 1,
		matches:    s.matches,
		players:    s.players,
		lastOrder:  s.lastOrder,
		checkpoint: s.checkpoint,
	}
	if len(c.Matches) > 0 {
		next.matches = make(map[string]*models.MatchRecord, len(s.matches)+len(c.Matches))
		for k, v := range s.matches {
			next.matches[k] = v
		}
		for _, m := range c.Matches {
			next.matches[m.MatchID] = m
		}
	}
	if len(c.Players) > 0 {
		next.players = make(map[string]*models.PlayerStats, len(s.players)+len(c.Players))
		for k, v := range s.players {
			next.players[k] = v
		}
		for _, p := range c.Players {
			next.players[p.Address] = p
		}
	}
	if s.lastOrder.Less(c.LastOrder) {
		next.lastOrder = c.LastOrder
	}
	if c.Checkpoint != nil {
		next.checkpoint = *c.Checkpoint
	}
	return next
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func clonePlayers(src []*models.PlayerStats) []*models.PlayerStats {
	out := make([]*models.PlayerStats, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}
