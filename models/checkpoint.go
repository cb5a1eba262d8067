package models

import "time"

// Checkpoint is the persisted resume point of the ingestion pipeline
type Checkpoint struct {
	// Block is where a restarted source resumes reading
	Block uint64 `json:"block"`

	// LastOrder is the highest event order folded into state
	LastOrder BlockOrder `json:"lastOrder"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ProcessedEvent records that an event identity was folded into state
type ProcessedEvent struct {
	Identity Identity
	Order    BlockOrder
}
