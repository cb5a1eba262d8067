package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gamestake/events"
	"gamestake/models"

	log "github.com/sirupsen/logrus"
)

// ErrAlreadyInitialized is returned by Restore once mutations have been applied
var ErrAlreadyInitialized = errors.New("store already holds state")

// Changes is everything one mutation wrote
type Changes struct {
	Matches    []*models.MatchRecord
	Players    []*models.PlayerStats
	Processed  []models.ProcessedEvent
	LastOrder  models.BlockOrder
	Checkpoint *uint64
}

// Empty reports whether the mutation wrote nothing durable
func (c *Changes) Empty() bool {
	return len(c.Matches) == 0 && len(c.Players) == 0 && len(c.Processed) == 0 && c.Checkpoint == nil
}

// Journal makes committed changes durable. Persist runs inside the writer's
// critical section; a failure aborts the mutation.
type Journal interface {
	Persist(ctx context.Context, changes *Changes) error
}

// Seed is persisted state loaded at startup
type Seed struct {
	Matches    []*models.MatchRecord
	Players    []*models.PlayerStats
	LastOrder  models.BlockOrder
	Checkpoint uint64
}

// Option configures a Store
type Option func(*Store)

// WithJournal persists every mutation through j
func WithJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// WithEventBus delivers events published inside mutations to bus after commit
func WithEventBus(bus *events.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// Store owns the match and player tables. Mutations are serialized; reads
// load the current snapshot without locking.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	journal Journal
	bus     *events.Bus
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(emptySnapshot())
	return s
}

// ReadSnapshot returns the latest committed snapshot
func (s *Store) ReadSnapshot() *Snapshot {
	return s.current.Load()
}

// Restore loads persisted state into an empty store
func (s *Store) Restore(seed *Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load().version != 0 {
		return ErrAlreadyInitialized
	}

	snap := emptySnapshot()
	for _, m := range seed.Matches {
		snap.matches[m.MatchID] = m.Clone()
	}
	for _, p := range seed.Players {
		snap.players[p.Address] = p.Clone()
	}
	snap.lastOrder = seed.LastOrder
	snap.checkpoint = seed.Checkpoint
	s.current.Store(snap)

	log.WithFields(log.Fields{
		"matches":    len(seed.Matches),
		"players":    len(seed.Players),
		"lastOrder":  seed.LastOrder.String(),
		"checkpoint": seed.Checkpoint,
	}).Info("Restored state from journal")
	return nil
}

// ApplyMutation runs fn against a private transaction and publishes the result
// as the next snapshot. At most one mutation runs at a time. If fn or the
// journal fails, nothing becomes visible and published events are dropped.
func (s *Store) ApplyMutation(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.current.Load()
	tx := newTx(base, events.NewTransactionalBus(s.bus))

	if err := fn(tx); err != nil {
		tx.bus.Discard()
		return err
	}

	changes := tx.changes()
	if !changes.Empty() {
		if s.journal != nil {
			if err := s.journal.Persist(ctx, changes); err != nil {
				tx.bus.Discard()
				return fmt.Errorf("failed to persist mutation: %w", err)
			}
		}
		s.current.Store(base.apply(changes))
	}

	return tx.bus.Flush(ctx)
}

// Tx is the write view handed to a mutation. It must not escape the mutation.
type Tx struct {
	base       *Snapshot
	matches    map[string]*models.MatchRecord
	players    map[string]*models.PlayerStats
	processed  []models.ProcessedEvent
	lastOrder  models.BlockOrder
	checkpoint *uint64
	bus        *events.TransactionalBus
}

func newTx(base *Snapshot, bus *events.TransactionalBus) *Tx {
	return &Tx{
		base:    base,
		matches: make(map[string]*models.MatchRecord),
		players: make(map[string]*models.PlayerStats),
		bus:     bus,
	}
}

// Match returns a mutable copy of the match, reflecting earlier writes in this tx
func (tx *Tx) Match(matchID string) (*models.MatchRecord, bool) {
	if m, ok := tx.matches[matchID]; ok {
		return m.Clone(), true
	}
	return tx.base.Match(matchID)
}

// PutMatch stages a match write
func (tx *Tx) PutMatch(m *models.MatchRecord) {
	tx.matches[m.MatchID] = m.Clone()
}

// Player returns a mutable copy of the player's stats, zero-valued if unknown
func (tx *Tx) Player(address string) *models.PlayerStats {
	if p, ok := tx.players[address]; ok {
		return p.Clone()
	}
	if p, ok := tx.base.Player(address); ok {
		return p
	}
	return models.NewPlayerStats(address)
}

// PutPlayer stages a stats write
func (tx *Tx) PutPlayer(p *models.PlayerStats) {
	tx.players[p.Address] = p.Clone()
}

// MarkProcessed records that the event was folded into this mutation
func (tx *Tx) MarkProcessed(id models.Identity, order models.BlockOrder) {
	tx.processed = append(tx.processed, models.ProcessedEvent{Identity: id, Order: order})
	if tx.lastOrder.Less(order) {
		tx.lastOrder = order
	}
}

// LastOrder is the highest order applied, including this transaction
func (tx *Tx) LastOrder() models.BlockOrder {
	if tx.base.lastOrder.Less(tx.lastOrder) {
		return tx.lastOrder
	}
	return tx.base.lastOrder
}

// SetCheckpoint records the block a restart has to resume from
func (tx *Tx) SetCheckpoint(block uint64) {
	if block == tx.base.checkpoint && tx.checkpoint == nil {
		return
	}
	tx.checkpoint = &block
}

// Publish queues an event for delivery after commit
func (tx *Tx) Publish(e events.Event) {
	tx.bus.Publish(e)
}

func (tx *Tx) changes() *Changes {
	c := &Changes{
		Processed:  tx.processed,
		LastOrder:  tx.lastOrder,
		Checkpoint: tx.checkpoint,
	}
	for _, m := range tx.matches {
		c.Matches = append(c.Matches, m)
	}
	for _, p := range tx.players {
		c.Players = append(c.Players, p)
	}
	return c
}
