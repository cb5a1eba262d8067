package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EventKind identifies which contract event an EventRecord was decoded from
type EventKind string

const (
	EventKindTokenPurchase EventKind = "token_purchase"
	EventKindMatchCreated  EventKind = "match_created"
	EventKindStaked        EventKind = "staked"
	EventKindSettled       EventKind = "settled"
	EventKindRefunded      EventKind = "refunded"
)

// IsMatchEvent reports whether the kind belongs to the match lifecycle
func (k EventKind) IsMatchEvent() bool {
	switch k {
	case EventKindMatchCreated, EventKindStaked, EventKindSettled, EventKindRefunded:
		return true
	}
	return false
}

// Identity is the on-chain position of a log: transaction hash plus log index.
// The chain never reuses it for distinct events.
type Identity struct {
	TxHash   string `json:"txHash"`
	LogIndex uint   `json:"logIndex"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s:%d", i.TxHash, i.LogIndex)
}

// BlockOrder is the canonical total order of logs from one chain
type BlockOrder struct {
	Block    uint64 `json:"block"`
	LogIndex uint   `json:"logIndex"`
}

// Less reports whether o sorts strictly before other
func (o BlockOrder) Less(other BlockOrder) bool {
	if o.Block != other.Block {
		return o.Block < other.Block
	}
	return o.LogIndex < other.LogIndex
}

// IsZero reports whether the order was never set
func (o BlockOrder) IsZero() bool {
	return o.Block == 0 && o.LogIndex == 0
}

func (o BlockOrder) String() string {
	return fmt.Sprintf("%d/%d", o.Block, o.LogIndex)
}

// EventRecord is one normalized contract event. Exactly one payload field is
// set, matching Kind. Records are never mutated after decoding.
type EventRecord struct {
	Kind     EventKind
	Identity Identity
	Order    BlockOrder

	Purchase     *TokenPurchasePayload
	MatchCreated *MatchCreatedPayload
	Staked       *StakedPayload
	Settled      *SettledPayload
	Refunded     *RefundedPayload
}

// MatchID returns the match the event refers to, or "" for purchases
func (e EventRecord) MatchID() string {
	switch e.Kind {
	case EventKindMatchCreated:
		return e.MatchCreated.MatchID
	case EventKindStaked:
		return e.Staked.MatchID
	case EventKindSettled:
		return e.Settled.MatchID
	case EventKindRefunded:
		return e.Refunded.MatchID
	}
	return ""
}

// Validate checks that the payload matching Kind is present
func (e EventRecord) Validate() error {
	var ok bool
	switch e.Kind {
	case EventKindTokenPurchase:
		ok = e.Purchase != nil
	case EventKindMatchCreated:
		ok = e.MatchCreated != nil
	case EventKindStaked:
		ok = e.Staked != nil
	case EventKindSettled:
		ok = e.Settled != nil
	case EventKindRefunded:
		ok = e.Refunded != nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("event %s of kind %s has no payload", e.Identity, e.Kind)
	}
	return nil
}

// TokenPurchasePayload is emitted by the token store on Purchase
type TokenPurchasePayload struct {
	Buyer      string
	USDTAmount decimal.Decimal
	GTOut      decimal.Decimal
}

// MatchCreatedPayload opens a match between two players
type MatchCreatedPayload struct {
	MatchID string
	Player1 string
	Player2 string
	Stake   decimal.Decimal
}

// StakedPayload records one player's stake leg
type StakedPayload struct {
	MatchID string
	Player  string
	Amount  decimal.Decimal
}

// SettledPayload closes a match with a winner
type SettledPayload struct {
	MatchID     string
	Winner      string
	TotalPayout decimal.Decimal
}

// RefundedPayload closes a match by returning both stakes
type RefundedPayload struct {
	MatchID string
	Player1 string
	Player2 string
	Stake   decimal.Decimal
}

// StreamItem is one element of a source stream. Either Event is set, or the
// item is a cursor mark: every log below block Cursor has already been sent.
type StreamItem struct {
	Event  *EventRecord
	Cursor uint64
}

// IsCursor reports whether the item is a cursor mark
func (i StreamItem) IsCursor() bool {
	return i.Event == nil
}
