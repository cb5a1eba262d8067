package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"gamestake/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	log "github.com/sirupsen/logrus"
)

// ErrGap is returned when a block range could not be read within the gap
// timeout. The source never skips a range, so the caller must stop.
var ErrGap = errors.New("unrecoverable gap in event stream")

// SourceConfig controls how the source reads the chain
type SourceConfig struct {
	StartBlock    uint64
	Confirmations uint64
	ChunkSize     uint64

	// ProofInterval is how often the live mode re-reads the chain to advance
	// the contiguous cursor
	ProofInterval time.Duration

	// GapTimeout bounds retries of one range. Zero retries forever.
	GapTimeout time.Duration

	// RetryInterval is the first backoff step
	RetryInterval time.Duration

	// MaxRetryInterval caps the backoff between node requests and between
	// resubscribe attempts
	MaxRetryInterval time.Duration
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.ChunkSize == 0 {
		c.ChunkSize = 2000
	}
	if c.ProofInterval <= 0 {
		c.ProofInterval = 30 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.MaxRetryInterval <= 0 {
		c.MaxRetryInterval = time.Minute
	}
	if c.MaxRetryInterval < c.RetryInterval {
		c.MaxRetryInterval = c.RetryInterval
	}
	return c
}

// SourceObserver receives source health signals
type SourceObserver interface {
	ObserveCursor(next, head uint64)
	ObserveSourceError(err error)
	ObserveSkippedLog(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveCursor(uint64, uint64) {}
func (nopObserver) ObserveSourceError(error)     {}
func (nopObserver) ObserveSkippedLog(string)     {}

// Source emits decoded events from both contracts. Backfilled ranges are
// emitted in block order, each followed by a cursor mark; live logs may repeat
// them and are deduplicated downstream. Only cursor marks say that a range is
// complete.
type Source struct {
	client   Client
	decoder  *Decoder
	cfg      SourceConfig
	observer SourceObserver
}

// SourceOption configures a Source
type SourceOption func(*Source)

// WithSourceObserver reports cursor progress and errors to o
func WithSourceObserver(o SourceObserver) SourceOption {
	return func(s *Source) {
		s.observer = o
	}
}

// NewSource creates a source reading through client
func NewSource(client Client, decoder *Decoder, cfg SourceConfig, opts ...SourceOption) *Source {
	s := &Source{
		client:   client,
		decoder:  decoder,
		cfg:      cfg.withDefaults(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run streams events and cursor marks into out starting at the later of the
// configured start block and resume. It returns when ctx is done or with ErrGap.
func (s *Source) Run(ctx context.Context, resume uint64, out chan<- models.StreamItem) error {
	next := s.cfg.StartBlock
	if resume > next {
		next = resume
	}

	log.WithFields(log.Fields{
		"fromBlock":     next,
		"confirmations": s.cfg.Confirmations,
		"chunkSize":     s.cfg.ChunkSize,
	}).Info("Starting chain event source")

	resubscribe := s.newBackOff()
	resubscribe.MaxElapsedTime = 0

	for {
		if err := s.catchUp(ctx, &next, out); err != nil {
			return err
		}

		started := time.Now()
		err := s.follow(ctx, &next, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrGap) {
			return err
		}

		// a subscription that outlived a proof interval counts as recovered
		if time.Since(started) >= s.cfg.ProofInterval {
			resubscribe.Reset()
		}
		delay := resubscribe.NextBackOff()

		s.observer.ObserveSourceError(err)
		log.WithFields(log.Fields{
			"error":     err,
			"nextBlock": next,
			"retryIn":   delay.String(),
		}).Warn("Live subscription dropped, resuming from cursor")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// catchUp reads every confirmed block from next to the safe head
func (s *Source) catchUp(ctx context.Context, next *uint64, out chan<- models.StreamItem) error {
	head, err := s.safeHead(ctx)
	if err != nil {
		return err
	}

	for *next <= head {
		to := *next + s.cfg.ChunkSize - 1
		if to > head {
			to = head
		}

		logs, err := s.fetch(ctx, *next, to)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, logs, out); err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"fromBlock": *next,
			"toBlock":   to,
			"logs":      len(logs),
		}).Debug("Backfilled block range")

		*next = to + 1
		if err := send(ctx, out, models.StreamItem{Cursor: *next}); err != nil {
			return err
		}
		s.observer.ObserveCursor(*next, head)
	}
	return nil
}

// follow delivers live logs until the subscription fails. The cursor only
// advances through the periodic proof backfill.
func (s *Source) follow(ctx context.Context, next *uint64, out chan<- models.StreamItem) error {
	logs := make(chan types.Log, 128)
	sub, err := s.client.SubscribeFilterLogs(ctx, s.query(nil, nil), logs)
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		log.Info("Node does not support subscriptions, polling for new blocks")
		sub = nil
	} else if err != nil {
		return fmt.Errorf("failed to subscribe to logs: %w", err)
	}

	var subErr <-chan error
	if sub != nil {
		defer sub.Unsubscribe()
		subErr = sub.Err()
	}

	ticker := time.NewTicker(s.cfg.ProofInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-subErr:
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err

		case lg := <-logs:
			// Unconfirmed blocks are left to the proof backfill
			if s.cfg.Confirmations > 0 {
				continue
			}
			if err := s.emit(ctx, []types.Log{lg}, out); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.catchUp(ctx, next, out); err != nil {
				return err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Source) safeHead(ctx context.Context) (uint64, error) {
	var head uint64
	err := s.retry(ctx, "head", func() error {
		n, err := s.client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if head < s.cfg.Confirmations {
		return 0, nil
	}
	return head - s.cfg.Confirmations, nil
}

func (s *Source) fetch(ctx context.Context, from, to uint64) ([]types.Log, error) {
	var logs []types.Log
	q := s.query(new(big.Int).SetUint64(from), new(big.Int).SetUint64(to))
	err := s.retry(ctx, fmt.Sprintf("blocks %d-%d", from, to), func() error {
		found, err := s.client.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		logs = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	return logs, nil
}

// retry runs op with exponential backoff until it succeeds, ctx ends, or the
// gap timeout elapses
func (s *Source) retry(ctx context.Context, what string, op func() error) error {
	b := s.newBackOff()
	b.MaxElapsedTime = s.cfg.GapTimeout

	attempt := 0
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		attempt++
		s.observer.ObserveSourceError(err)
		log.WithFields(log.Fields{
			"range":   what,
			"attempt": attempt,
			"retryIn": wait.String(),
			"error":   err,
		}).Warn("Node request failed, retrying")
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", ErrGap, what, err)
}

func (s *Source) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInterval
	b.MaxInterval = s.cfg.MaxRetryInterval
	b.Reset()
	return b
}

func (s *Source) query(from, to *big.Int) ethereum.FilterQuery {
	playGame, tokenStore := Topics(s.decoder.abi)
	return ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: s.decoder.Addresses(),
		Topics:    [][]common.Hash{append(playGame, tokenStore...)},
	}
}

// emit decodes and sends logs, blocking while the consumer is behind
func (s *Source) emit(ctx context.Context, logs []types.Log, out chan<- models.StreamItem) error {
	for _, lg := range logs {
		fields := log.Fields{
			"block":    lg.BlockNumber,
			"txHash":   lg.TxHash.Hex(),
			"logIndex": lg.Index,
		}

		if lg.Removed {
			s.observer.ObserveSkippedLog("removed")
			log.WithFields(fields).Warn("Skipping log removed by chain reorganization")
			continue
		}

		ev, err := s.decoder.Decode(lg)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, ErrUnknownEvent) {
				reason = "unknown"
			}
			s.observer.ObserveSkippedLog(reason)
			fields["error"] = err
			log.WithFields(fields).Warn("Skipping undecodable log")
			continue
		}

		if err := send(ctx, out, models.StreamItem{Event: &ev}); err != nil {
			return err
		}
	}
	return nil
}

func send(ctx context.Context, out chan<- models.StreamItem, item models.StreamItem) error {
	select {
	case out <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
