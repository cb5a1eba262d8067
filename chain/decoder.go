package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gamestake/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedLog is returned for logs that cannot be decoded into an event
	ErrMalformedLog = errors.New("malformed log")

	// ErrUnknownEvent is returned for logs that are not one of the tracked events
	ErrUnknownEvent = errors.New("unknown event")
)

// DecoderConfig identifies the contracts and the token precisions
type DecoderConfig struct {
	PlayGame     common.Address
	TokenStore   common.Address
	GTDecimals   int32
	USDTDecimals int32
}

// Decoder turns raw logs into event records
type Decoder struct {
	cfg    DecoderConfig
	abi    abi.ABI
	events map[common.Hash]abi.Event
}

// NewDecoder creates a decoder for the configured contracts
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	parsed, err := ContractABI()
	if err != nil {
		return nil, err
	}

	d := &Decoder{cfg: cfg, abi: parsed, events: make(map[common.Hash]abi.Event)}
	for _, ev := range parsed.Events {
		d.events[ev.ID] = ev
	}
	return d, nil
}

// Addresses returns the contracts whose logs the decoder understands
func (d *Decoder) Addresses() []common.Address {
	return []common.Address{d.cfg.PlayGame, d.cfg.TokenStore}
}

// Decode converts one log. Addresses are lowercased and amounts are scaled
// from base units by the token decimals.
func (d *Decoder) Decode(lg types.Log) (models.EventRecord, error) {
	if len(lg.Topics) == 0 {
		return models.EventRecord{}, fmt.Errorf("%w: no topics", ErrMalformedLog)
	}

	ev, ok := d.events[lg.Topics[0]]
	if !ok {
		return models.EventRecord{}, fmt.Errorf("%w: topic %s", ErrUnknownEvent, lg.Topics[0].Hex())
	}

	wantContract := d.cfg.PlayGame
	if ev.Name == EventPurchase {
		wantContract = d.cfg.TokenStore
	}
	if lg.Address != wantContract {
		return models.EventRecord{}, fmt.Errorf("%w: %s emitted by %s", ErrUnknownEvent, ev.Name, lg.Address.Hex())
	}

	indexed := 0
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed++
		}
	}
	if len(lg.Topics) != indexed+1 {
		return models.EventRecord{}, fmt.Errorf("%w: %s has %d topics, want %d", ErrMalformedLog, ev.Name, len(lg.Topics), indexed+1)
	}

	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return models.EventRecord{}, fmt.Errorf("%w: %s data: %v", ErrMalformedLog, ev.Name, err)
	}
	amounts := make([]*big.Int, len(values))
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return models.EventRecord{}, fmt.Errorf("%w: %s field %d is %T", ErrMalformedLog, ev.Name, i, v)
		}
		amounts[i] = n
	}

	rec := models.EventRecord{
		Identity: models.Identity{TxHash: lg.TxHash.Hex(), LogIndex: lg.Index},
		Order:    models.BlockOrder{Block: lg.BlockNumber, LogIndex: lg.Index},
	}

	gt := func(n *big.Int) decimal.Decimal { return decimal.NewFromBigInt(n, -d.cfg.GTDecimals) }

	switch ev.Name {
	case EventMatchCreated:
		rec.Kind = models.EventKindMatchCreated
		rec.MatchCreated = &models.MatchCreatedPayload{
			MatchID: lg.Topics[1].Hex(),
			Player1: topicAddress(lg.Topics[2]),
			Player2: topicAddress(lg.Topics[3]),
			Stake:   gt(amounts[0]),
		}
	case EventStaked:
		rec.Kind = models.EventKindStaked
		rec.Staked = &models.StakedPayload{
			MatchID: lg.Topics[1].Hex(),
			Player:  topicAddress(lg.Topics[2]),
			Amount:  gt(amounts[0]),
		}
	case EventSettled:
		rec.Kind = models.EventKindSettled
		rec.Settled = &models.SettledPayload{
			MatchID:     lg.Topics[1].Hex(),
			Winner:      topicAddress(lg.Topics[2]),
			TotalPayout: gt(amounts[0]),
		}
	case EventRefunded:
		rec.Kind = models.EventKindRefunded
		rec.Refunded = &models.RefundedPayload{
			MatchID: lg.Topics[1].Hex(),
			Player1: topicAddress(lg.Topics[2]),
			Player2: topicAddress(lg.Topics[3]),
			Stake:   gt(amounts[0]),
		}
	case EventPurchase:
		rec.Kind = models.EventKindTokenPurchase
		rec.Purchase = &models.TokenPurchasePayload{
			Buyer:      topicAddress(lg.Topics[1]),
			USDTAmount: decimal.NewFromBigInt(amounts[0], -d.cfg.USDTDecimals),
			GTOut:      gt(amounts[1]),
		}
	default:
		return models.EventRecord{}, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
	}

	if err := rec.Validate(); err != nil {
		return models.EventRecord{}, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	return rec, nil
}

func topicAddress(h common.Hash) string {
	return strings.ToLower(common.BytesToAddress(h.Bytes()).Hex())
}
