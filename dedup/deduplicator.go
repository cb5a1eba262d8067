// Package dedup drops re-delivered chain events before they reach the aggregator.
package dedup

import (
	"container/heap"
	"errors"

	"gamestake/models"
)

var (
	// ErrCapacityExceeded means the retention window holds more identities than allowed
	ErrCapacityExceeded = errors.New("dedup identity set reached its capacity")

	// ErrBeyondRetention means an unseen event is older than the retention window,
	// so it cannot be told apart from a forgotten replay
	ErrBeyondRetention = errors.New("event is older than the dedup retention window")
)

// Config bounds the identity set
type Config struct {
	// RetentionBlocks is how far behind the highest seen block identities are kept.
	// Zero keeps every identity.
	RetentionBlocks uint64

	// MaxEntries caps the set size. Zero means no cap.
	MaxEntries int
}

// Deduplicator emits each identity once. It is owned by the single ingestion
// writer and is not safe for concurrent use.
type Deduplicator struct {
	cfg     Config
	seen    map[models.Identity]uint64
	expiry  entryHeap
	highest uint64
}

// New creates an empty deduplicator
func New(cfg Config) *Deduplicator {
	return &Deduplicator{
		cfg:  cfg,
		seen: make(map[models.Identity]uint64),
	}
}

// Seed marks an identity as already applied, e.g. from persisted state
func (d *Deduplicator) Seed(id models.Identity, block uint64) {
	if _, ok := d.seen[id]; ok {
		return
	}
	d.add(id, block)
}

// Filter reports whether ev is seen for the first time. Duplicates return
// false with no error; events that cannot be admitted return false with an error.
func (d *Deduplicator) Filter(ev models.EventRecord) (bool, error) {
	if _, ok := d.seen[ev.Identity]; ok {
		return false, nil
	}

	if d.cfg.RetentionBlocks > 0 && ev.Order.Block < d.floor() {
		return false, ErrBeyondRetention
	}

	if ev.Order.Block > d.highest {
		d.highest = ev.Order.Block
		d.prune()
	}

	if d.cfg.MaxEntries > 0 && len(d.seen) >= d.cfg.MaxEntries {
		return false, ErrCapacityExceeded
	}

	d.add(ev.Identity, ev.Order.Block)
	return true, nil
}

// Len returns the number of retained identities
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// Highest returns the highest block observed
func (d *Deduplicator) Highest() uint64 {
	return d.highest
}

func (d *Deduplicator) add(id models.Identity, block uint64) {
	d.seen[id] = block
	heap.Push(&d.expiry, entry{id: id, block: block})
	if block > d.highest {
		d.highest = block
		d.prune()
	}
}

// floor is the lowest block still inside the retention window
func (d *Deduplicator) floor() uint64 {
	if d.cfg.RetentionBlocks == 0 || d.highest <= d.cfg.RetentionBlocks {
		return 0
	}
	return d.highest - d.cfg.RetentionBlocks
}

func (d *Deduplicator) prune() {
	if d.cfg.RetentionBlocks == 0 {
		return
	}
	floor := d.floor()
	for d.expiry.Len() > 0 && d.expiry[0].block < floor {
		e := heap.Pop(&d.expiry).(entry)
		delete(d.seen, e.id)
	}
}

type entry struct {
	id    models.Identity
	block uint64
}

// entryHeap is a min-heap on block number
type entryHeap []entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].block < h[j].block }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
