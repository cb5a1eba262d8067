package service

import (
	"sync"
	"time"

	"gamestake/aggregator"
	"gamestake/chain"
	"gamestake/events"
	"gamestake/models"
)

// IngestionObserver receives both source and aggregator signals
type IngestionObserver interface {
	chain.SourceObserver
	aggregator.Observer
}

// HealthTracker derives the ingestion status served with every query
type HealthTracker struct {
	mu           sync.RWMutex
	staleAfter   time.Duration
	now          func() time.Time
	startedAt    time.Time
	lastProgress time.Time
	lastEventAt  time.Time
	lastError    string
	lastErrorAt  time.Time
	pending      int
	faults       int64
}

// NewHealthTracker creates a tracker that reports stale after staleAfter
// without source progress
func NewHealthTracker(staleAfter time.Duration, now func() time.Time) *HealthTracker {
	if now == nil {
		now = time.Now
	}
	started := now()
	return &HealthTracker{
		staleAfter:   staleAfter,
		now:          now,
		startedAt:    started,
		lastProgress: started,
	}
}

func (h *HealthTracker) ObserveCursor(next, head uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastProgress = h.now()
}

func (h *HealthTracker) ObserveSourceError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = err.Error()
	h.lastErrorAt = h.now()
}

func (h *HealthTracker) ObserveSkippedLog(reason string) {}

func (h *HealthTracker) ObserveOutcome(kind models.EventKind, outcome aggregator.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.lastProgress = now
	if outcome == aggregator.OutcomeApplied {
		h.lastEventAt = now
	}
}

func (h *HealthTracker) ObserveAlert(category events.AlertCategory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults++
}

func (h *HealthTracker) ObservePending(count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = count
}

// Status reports the health at lastBlock
func (h *HealthTracker) Status(lastBlock uint64) models.IngestionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := models.IngestionStatus{
		State:            models.IngestionStateHealthy,
		LastBlock:        lastBlock,
		LastError:        h.lastError,
		PendingEvents:    h.pending,
		ConsistencyFault: h.faults,
	}
	if !h.lastEventAt.IsZero() {
		t := h.lastEventAt
		status.LastEventAt = &t
	}
	if !h.lastErrorAt.IsZero() {
		t := h.lastErrorAt
		status.LastErrorAt = &t
	}

	switch {
	case h.staleAfter > 0 && now.Sub(h.lastProgress) > h.staleAfter:
		status.State = models.IngestionStateStale
	case !h.lastErrorAt.IsZero() && now.Sub(h.lastErrorAt) <= h.staleAfter:
		status.State = models.IngestionStateDegraded
	}
	return status
}

// Observers fans signals out to several observers
type Observers []IngestionObserver

func (o Observers) ObserveCursor(next, head uint64) {
	for _, obs := range o {
		obs.ObserveCursor(next, head)
	}
}

func (o Observers) ObserveSourceError(err error) {
	for _, obs := range o {
		obs.ObserveSourceError(err)
	}
}

func (o Observers) ObserveSkippedLog(reason string) {
	for _, obs := range o {
		obs.ObserveSkippedLog(reason)
	}
}

func (o Observers) ObserveOutcome(kind models.EventKind, outcome aggregator.Outcome) {
	for _, obs := range o {
		obs.ObserveOutcome(kind, outcome)
	}
}

func (o Observers) ObserveAlert(category events.AlertCategory) {
	for _, obs := range o {
		obs.ObserveAlert(category)
	}
}

func (o Observers) ObservePending(count int) {
	for _, obs := range o {
		obs.ObservePending(count)
	}
}
