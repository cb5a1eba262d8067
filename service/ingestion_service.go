package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamestake/aggregator"
	"gamestake/dedup"
	"gamestake/events"
	"gamestake/models"
	"gamestake/store"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EventSource produces chain events and cursor marks starting at resume.
// chain.Source implements it.
type EventSource interface {
	Run(ctx context.Context, resume uint64, out chan<- models.StreamItem) error
}

// IngestionConfig tunes the pipeline between source and store
type IngestionConfig struct {
	BufferSize     int
	ExpiryInterval time.Duration
}

// IngestionService drives source → deduplicator → aggregator. The consumer is
// a single goroutine, so the deduplicator and aggregator need no locks.
type IngestionService struct {
	cfg        IngestionConfig
	source     EventSource
	dedup      *dedup.Deduplicator
	aggregator *aggregator.Aggregator
	store      *store.Store
	bus        *events.Bus
}

// NewIngestionService wires the pipeline. bus may be nil.
func NewIngestionService(cfg IngestionConfig, source EventSource, d *dedup.Deduplicator, agg *aggregator.Aggregator, st *store.Store, bus *events.Bus) *IngestionService {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = time.Second
	}
	return &IngestionService{
		cfg:        cfg,
		source:     source,
		dedup:      d,
		aggregator: agg,
		store:      st,
		bus:        bus,
	}
}

// Run ingests until ctx is cancelled or the pipeline hits a fatal error
// (unrecoverable gap or a failed store write)
func (s *IngestionService) Run(ctx context.Context) error {
	resume := s.store.ReadSnapshot().Checkpoint()
	s.aggregator.Resume(resume)
	feed := make(chan models.StreamItem, s.cfg.BufferSize)

	log.WithFields(log.Fields{
		"resumeBlock": resume,
		"bufferSize":  s.cfg.BufferSize,
	}).Info("Starting ingestion pipeline")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.source.Run(gctx, resume, feed)
	})
	g.Go(func() error {
		return s.consume(gctx, feed)
	})

	err := g.Wait()
	if dropped := s.aggregator.Discard(); dropped > 0 {
		log.WithField("discarded", dropped).Info("Pending events will be re-read from the checkpoint on restart")
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		log.Info("Ingestion pipeline stopped")
		return nil
	}
	return err
}

func (s *IngestionService) consume(ctx context.Context, feed <-chan models.StreamItem) error {
	ticker := time.NewTicker(s.cfg.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case item := <-feed:
			if item.IsCursor() {
				if err := s.aggregator.Confirm(ctx, item.Cursor); err != nil {
					return fmt.Errorf("ingestion stopped: %w", err)
				}
				continue
			}
			if err := s.handle(ctx, *item.Event); err != nil {
				return err
			}

		case <-ticker.C:
			if _, err := s.aggregator.Expire(ctx); err != nil {
				return err
			}
		}
	}
}

// handle returns an error only when the pipeline must stop
func (s *IngestionService) handle(ctx context.Context, ev models.EventRecord) error {
	fresh, err := s.dedup.Filter(ev)
	if err != nil {
		s.resourceAlert(ctx, ev, err)
		return nil
	}
	if !fresh {
		log.WithFields(log.Fields{
			"kind":     ev.Kind,
			"identity": ev.Identity.String(),
		}).Debug("Dropped duplicate event")
		return nil
	}

	_, err = s.aggregator.Apply(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, aggregator.ErrConsistency), errors.Is(err, aggregator.ErrPendingOverflow):
		// already logged and alerted by the aggregator
		return nil
	default:
		return fmt.Errorf("ingestion stopped: %w", err)
	}
}

func (s *IngestionService) resourceAlert(ctx context.Context, ev models.EventRecord, err error) {
	category := events.AlertCategoryResourceLimit
	if errors.Is(err, dedup.ErrBeyondRetention) {
		category = events.AlertCategoryUnreconcilable
	}

	log.WithFields(log.Fields{
		"category": category,
		"kind":     ev.Kind,
		"identity": ev.Identity.String(),
		"order":    ev.Order.String(),
		"error":    err,
	}).Error("Event could not be deduplicated and was not applied")

	if s.bus != nil {
		s.bus.Emit(ctx, events.ConsistencyAlertEvent{
			Category: category,
			MatchID:  ev.MatchID(),
			Kind:     ev.Kind,
			Identity: ev.Identity,
			Order:    ev.Order,
			Reason:   err.Error(),
		})
	}
}
