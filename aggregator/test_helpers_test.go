package aggregator

import (
	"fmt"
	"sync"
	"time"

	"gamestake/events"
	"gamestake/models"
	"gamestake/store"

	"github.com/shopspring/decimal"
)

const (
	playerA = "0x00000000000000000000000000000000000000aa"
	playerB = "0x00000000000000000000000000000000000000bb"
	playerC = "0x00000000000000000000000000000000000000cc"
	playerD = "0x00000000000000000000000000000000000000dd"
)

func matchID(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func identity(block uint64, logIndex uint) models.Identity {
	return models.Identity{TxHash: fmt.Sprintf("0x%064x", block), LogIndex: logIndex}
}

func at(block uint64, logIndex uint) (models.Identity, models.BlockOrder) {
	return identity(block, logIndex), models.BlockOrder{Block: block, LogIndex: logIndex}
}

func created(id string, p1, p2 string, stake int64, block uint64) models.EventRecord {
	ident, order := at(block, 0)
	return models.EventRecord{
		Kind:     models.EventKindMatchCreated,
		Identity: ident,
		Order:    order,
		MatchCreated: &models.MatchCreatedPayload{
			MatchID: id, Player1: p1, Player2: p2, Stake: decimal.NewFromInt(stake),
		},
	}
}

func staked(id, player string, amount int64, block uint64) models.EventRecord {
	ident, order := at(block, 0)
	return models.EventRecord{
		Kind:     models.EventKindStaked,
		Identity: ident,
		Order:    order,
		Staked:   &models.StakedPayload{MatchID: id, Player: player, Amount: decimal.NewFromInt(amount)},
	}
}

func settled(id, winner string, payout int64, block uint64) models.EventRecord {
	ident, order := at(block, 0)
	return models.EventRecord{
		Kind:     models.EventKindSettled,
		Identity: ident,
		Order:    order,
		Settled:  &models.SettledPayload{MatchID: id, Winner: winner, TotalPayout: decimal.NewFromInt(payout)},
	}
}

func refunded(id, p1, p2 string, stake int64, block uint64) models.EventRecord {
	ident, order := at(block, 0)
	return models.EventRecord{
		Kind:     models.EventKindRefunded,
		Identity: ident,
		Order:    order,
		Refunded: &models.RefundedPayload{MatchID: id, Player1: p1, Player2: p2, Stake: decimal.NewFromInt(stake)},
	}
}

func purchased(buyer string, usdt, gt int64, block uint64, logIndex uint) models.EventRecord {
	ident, order := at(block, logIndex)
	return models.EventRecord{
		Kind:     models.EventKindTokenPurchase,
		Identity: ident,
		Order:    order,
		Purchase: &models.TokenPurchasePayload{Buyer: buyer, USDTAmount: decimal.NewFromInt(usdt), GTOut: decimal.NewFromInt(gt)},
	}
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAggregator(cfg Config, bus *events.Bus) (*Aggregator, *store.Store, *fakeClock) {
	clock := newFakeClock()
	st := store.New(store.WithEventBus(bus))
	return New(st, cfg, WithClock(clock.Now)), st, clock
}

// stateOf flattens a snapshot into comparable values, ignoring wall-clock timestamps
type stateView struct {
	Matches map[string]matchView
	Players map[string]playerView
}

type matchView struct {
	Player1, Player2, Winner, Status, Stake, Payout string
	StakedBy                                        []string
	LastOrder                                       models.BlockOrder
}

type playerView struct {
	Wins, MatchesPlayed         int64
	TotalGTWon, TokensPurchased string
}

func stateOf(snap *store.Snapshot) stateView {
	view := stateView{Matches: map[string]matchView{}, Players: map[string]playerView{}}
	for _, m := range snap.Recent(0) {
		mv := matchView{
			Player1:   m.Player1,
			Player2:   m.Player2,
			Winner:    m.Winner,
			Status:    string(m.Status),
			Stake:     m.Stake.String(),
			StakedBy:  m.StakedBy,
			LastOrder: m.LastOrder,
		}
		if m.Payout != nil {
			mv.Payout = m.Payout.String()
		}
		view.Matches[m.MatchID] = mv
	}
	for _, p := range snap.Ranked(0) {
		view.Players[p.Address] = playerView{
			Wins:            p.Wins,
			MatchesPlayed:   p.MatchesPlayed,
			TotalGTWon:      p.TotalGTWon.String(),
			TokensPurchased: p.TokensPurchased.String(),
		}
	}
	return view
}
