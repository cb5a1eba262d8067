// Package aggregator folds deduplicated chain events into the match and player tables.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gamestake/events"
	"gamestake/models"
	"gamestake/store"

	log "github.com/sirupsen/logrus"
)

// Outcome is what happened to one event
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeStale    Outcome = "stale"
	OutcomeBuffered Outcome = "buffered"
	OutcomeRejected Outcome = "rejected"
	OutcomeExpired  Outcome = "expired"
)

// Observer receives ingestion signals, typically for metrics
type Observer interface {
	ObserveOutcome(kind models.EventKind, outcome Outcome)
	ObserveAlert(category events.AlertCategory)
	ObservePending(count int)
}

// Config bounds the predecessor buffer
type Config struct {
	// Horizon is how long an event may wait for its predecessor
	Horizon time.Duration

	// MaxPending caps the number of buffered events. Zero means no cap.
	MaxPending int
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithObserver reports outcomes to o
func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		a.observer = o
	}
}

type pendingEvent struct {
	event      models.EventRecord
	receivedAt time.Time
}

// Aggregator is the single writer of the store. Events for one match are
// applied in block order; events that arrive ahead of their predecessor wait
// in a per-match buffer. It is not safe for concurrent use.
type Aggregator struct {
	cfg      Config
	store    *store.Store
	pending  map[string][]pendingEvent
	count    int
	cursor   uint64
	now      func() time.Time
	observer Observer
}

// New creates an aggregator writing into st. The confirmed cursor starts at
// the store's checkpoint, so restore the store first.
func New(st *store.Store, cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		cfg:     cfg,
		store:   st,
		pending: make(map[string][]pendingEvent),
		cursor:  st.ReadSnapshot().Checkpoint(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply folds one event into the store. A rejected event returns its
// *ConsistencyError; any other error means the store could not commit.
func (a *Aggregator) Apply(ctx context.Context, ev models.EventRecord) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return OutcomeRejected, err
	}

	var (
		outcome Outcome
		fault   error
	)
	err := a.store.ApplyMutation(ctx, func(tx *store.Tx) error {
		outcome, fault = a.applyOne(tx, ev, a.now())
		if outcome == OutcomeApplied && ev.Kind.IsMatchEvent() {
			a.release(tx, ev.MatchID())
		}
		tx.SetCheckpoint(a.checkpoint())
		return nil
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to apply %s event %s: %w", ev.Kind, ev.Identity, err)
	}

	a.observe(ev.Kind, outcome)
	return outcome, fault
}

// Expire drops buffered events that waited longer than the horizon and raises
// a consistency alert for each. Returns how many were dropped.
func (a *Aggregator) Expire(ctx context.Context) (int, error) {
	if a.count == 0 || a.cfg.Horizon <= 0 {
		return 0, nil
	}

	now := a.now()
	expired := 0
	err := a.store.ApplyMutation(ctx, func(tx *store.Tx) error {
		for matchID, list := range a.pending {
			kept := list[:0]
			for _, p := range list {
				if now.Sub(p.receivedAt) < a.cfg.Horizon {
					kept = append(kept, p)
					continue
				}
				expired++
				a.count--
				a.alert(tx, events.AlertCategoryMissingParent, p.event,
					fmt.Sprintf("no predecessor within %s", a.cfg.Horizon))
				a.observe(p.event.Kind, OutcomeExpired)
			}
			if len(kept) == 0 {
				delete(a.pending, matchID)
			} else {
				a.pending[matchID] = kept
			}
		}
		tx.SetCheckpoint(a.checkpoint())
		return nil
	})
	if err != nil {
		return expired, fmt.Errorf("failed to expire pending events: %w", err)
	}

	a.observePending()
	return expired, nil
}

// Confirm records that the source has delivered every log below block cursor
// and moves the persisted checkpoint up to it, or to the earliest buffered
// event if that is lower. A cursor that does not advance is ignored.
func (a *Aggregator) Confirm(ctx context.Context, cursor uint64) error {
	if cursor <= a.cursor {
		return nil
	}

	prev := a.cursor
	a.cursor = cursor
	err := a.store.ApplyMutation(ctx, func(tx *store.Tx) error {
		tx.SetCheckpoint(a.checkpoint())
		return nil
	})
	if err != nil {
		a.cursor = prev
		return fmt.Errorf("failed to confirm cursor %d: %w", cursor, err)
	}
	return nil
}

// Resume raises the confirmed cursor to where a restarted source starts
// reading. Nothing is persisted.
func (a *Aggregator) Resume(cursor uint64) {
	if cursor > a.cursor {
		a.cursor = cursor
	}
}

// Cursor returns the highest confirmed source cursor
func (a *Aggregator) Cursor() uint64 {
	return a.cursor
}

// PendingCount returns the number of buffered events
func (a *Aggregator) PendingCount() int {
	return a.count
}

// Discard drops every buffered event, used at shutdown. The persisted
// checkpoint still points at the oldest of them, so a restart re-fetches them.
func (a *Aggregator) Discard() int {
	n := a.count
	if n > 0 {
		log.WithField("pendingEvents", n).Warn("Discarding events still waiting for a predecessor")
	}
	a.pending = make(map[string][]pendingEvent)
	a.count = 0
	a.observePending()
	return n
}

func (a *Aggregator) applyOne(tx *store.Tx, ev models.EventRecord, now time.Time) (Outcome, error) {
	if ev.Kind == models.EventKindTokenPurchase {
		purchase(tx, ev)
		return OutcomeApplied, nil
	}

	matchID := ev.MatchID()
	rec, exists := tx.Match(matchID)
	v := classify(rec, exists, ev)

	logger := log.WithFields(log.Fields{
		"matchId":  matchID,
		"kind":     ev.Kind,
		"identity": ev.Identity.String(),
		"order":    ev.Order.String(),
	})

	switch v.action {
	case actionApply:
		transition(tx, rec, ev, now)
		logger.Debug("Applied match event")
		return OutcomeApplied, nil

	case actionStale:
		if ev.Kind == models.EventKindStaked && recordLeg(rec, ev.Staked.Player) {
			tx.PutMatch(rec)
		}
		logger.WithField("reason", v.reason).Info("Dropped stale match event")
		return OutcomeStale, nil

	case actionBuffer:
		return a.hold(tx, ev, now, v.reason)

	default:
		return OutcomeRejected, a.alert(tx, events.AlertCategoryConflict, ev, v.reason)
	}
}

// hold buffers an event that is ahead of its predecessor
func (a *Aggregator) hold(tx *store.Tx, ev models.EventRecord, now time.Time, reason string) (Outcome, error) {
	matchID := ev.MatchID()
	list := a.pending[matchID]
	for _, p := range list {
		if p.event.Identity == ev.Identity {
			return OutcomeBuffered, nil
		}
	}

	if a.cfg.MaxPending > 0 && a.count >= a.cfg.MaxPending {
		err := a.alert(tx, events.AlertCategoryResourceLimit, ev,
			fmt.Sprintf("predecessor buffer holds %d events", a.count))
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrPendingOverflow, err)
	}

	list = append(list, pendingEvent{event: ev, receivedAt: now})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].event.Order.Less(list[j].event.Order)
	})
	a.pending[matchID] = list
	a.count++
	a.observePending()

	log.WithFields(log.Fields{
		"matchId":  matchID,
		"kind":     ev.Kind,
		"identity": ev.Identity.String(),
		"order":    ev.Order.String(),
		"reason":   reason,
		"pending":  a.count,
	}).Info("Buffered match event until its predecessor arrives")
	return OutcomeBuffered, nil
}

// release re-runs buffered events of a match after it advanced, earliest
// first, until none of them can make progress
func (a *Aggregator) release(tx *store.Tx, matchID string) {
	for {
		list := a.pending[matchID]
		progressed := false
		for i, p := range list {
			rec, exists := tx.Match(matchID)
			if classify(rec, exists, p.event).action == actionBuffer {
				continue
			}

			a.pending[matchID] = append(list[:i:i], list[i+1:]...)
			if len(a.pending[matchID]) == 0 {
				delete(a.pending, matchID)
			}
			a.count--

			outcome, _ := a.applyOne(tx, p.event, a.now())
			a.observe(p.event.Kind, outcome)
			log.WithFields(log.Fields{
				"matchId":  matchID,
				"kind":     p.event.Kind,
				"identity": p.event.Identity.String(),
				"outcome":  outcome,
				"waited":   a.now().Sub(p.receivedAt).String(),
			}).Info("Released buffered match event")
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}
	a.observePending()
}

// checkpoint is the oldest block a restart must re-read: the confirmed source
// cursor, or the earliest buffered event if that is lower. Live events past
// the cursor never move it.
func (a *Aggregator) checkpoint() uint64 {
	block := a.cursor
	for _, list := range a.pending {
		if len(list) > 0 && list[0].event.Order.Block < block {
			block = list[0].event.Order.Block
		}
	}
	return block
}

func (a *Aggregator) alert(tx *store.Tx, category events.AlertCategory, ev models.EventRecord, reason string) error {
	fault := &ConsistencyError{
		MatchID:  ev.MatchID(),
		Kind:     ev.Kind,
		Identity: ev.Identity,
		Order:    ev.Order,
		Reason:   reason,
	}

	log.WithFields(log.Fields{
		"category": category,
		"matchId":  fault.MatchID,
		"kind":     fault.Kind,
		"identity": fault.Identity.String(),
		"order":    fault.Order.String(),
		"reason":   reason,
	}).Error("Consistency alert: event rejected, manual reconciliation required")

	tx.Publish(events.ConsistencyAlertEvent{
		Category: category,
		MatchID:  fault.MatchID,
		Kind:     fault.Kind,
		Identity: fault.Identity,
		Order:    fault.Order,
		Reason:   reason,
	})
	if a.observer != nil {
		a.observer.ObserveAlert(category)
	}
	return fault
}

func (a *Aggregator) observe(kind models.EventKind, outcome Outcome) {
	if a.observer != nil {
		a.observer.ObserveOutcome(kind, outcome)
	}
}

func (a *Aggregator) observePending() {
	if a.observer != nil {
		a.observer.ObservePending(a.count)
	}
}
