package service

import (
	"context"
	"fmt"

	"gamestake/models"
	"gamestake/store"

	log "github.com/sirupsen/logrus"
)

// Journal persists store mutations through a unit of work. It implements
// store.Journal and is only called by the store's single writer.
type Journal struct {
	uowFactory      UnitOfWorkFactory
	retentionBlocks uint64
	lastOrder       models.BlockOrder
	checkpoint      uint64
}

// NewJournal creates a journal. Processed identities more than
// retentionBlocks behind the checkpoint are pruned.
func NewJournal(uowFactory UnitOfWorkFactory, retentionBlocks uint64) *Journal {
	return &Journal{uowFactory: uowFactory, retentionBlocks: retentionBlocks}
}

// Persist writes one mutation in a single transaction
func (j *Journal) Persist(ctx context.Context, changes *store.Changes) error {
	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	for _, m := range changes.Matches {
		if err := uow.MatchRepository().Upsert(ctx, m); err != nil {
			return err
		}
	}
	for _, p := range changes.Players {
		if err := uow.PlayerStatsRepository().Upsert(ctx, p); err != nil {
			return err
		}
	}
	if err := uow.ProcessedEventRepository().MarkProcessed(ctx, changes.Processed); err != nil {
		return err
	}

	lastOrder := j.lastOrder
	if lastOrder.Less(changes.LastOrder) {
		lastOrder = changes.LastOrder
	}
	checkpoint := j.checkpoint
	if changes.Checkpoint != nil {
		checkpoint = *changes.Checkpoint
	}

	if lastOrder != j.lastOrder || checkpoint != j.checkpoint {
		err := uow.CheckpointRepository().Save(ctx, &models.Checkpoint{Block: checkpoint, LastOrder: lastOrder})
		if err != nil {
			return err
		}
	}

	var pruned int64
	if checkpoint != j.checkpoint && j.retentionBlocks > 0 && checkpoint > j.retentionBlocks {
		n, err := uow.ProcessedEventRepository().PruneBefore(ctx, checkpoint-j.retentionBlocks)
		if err != nil {
			return err
		}
		pruned = n
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	j.lastOrder = lastOrder
	j.checkpoint = checkpoint

	if pruned > 0 {
		log.WithFields(log.Fields{
			"pruned":     pruned,
			"checkpoint": checkpoint,
		}).Debug("Pruned processed event identities")
	}
	return nil
}

// PersistedState is what a restarted process resumes from
type PersistedState struct {
	Seed      *store.Seed
	Processed []models.ProcessedEvent
}

// LoadState reads persisted state and primes the journal with its checkpoint.
// Processed identities inside the dedup retention window are returned so the
// deduplicator can be seeded.
func (j *Journal) LoadState(ctx context.Context) (*PersistedState, error) {
	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	matches, err := uow.MatchRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	players, err := uow.PlayerStatsRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	cp, err := uow.CheckpointRepository().Get(ctx)
	if err != nil {
		return nil, err
	}

	seed := &store.Seed{Matches: matches, Players: players}
	if cp != nil {
		seed.Checkpoint = cp.Block
		seed.LastOrder = cp.LastOrder
	}

	// the source resumes at the checkpoint, which can trail the last applied
	// block, so identities are kept from the same window Persist prunes to
	var since uint64
	if j.retentionBlocks > 0 && seed.Checkpoint > j.retentionBlocks {
		since = seed.Checkpoint - j.retentionBlocks
	}
	processed, err := uow.ProcessedEventRepository().ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish state load: %w", err)
	}

	j.lastOrder = seed.LastOrder
	j.checkpoint = seed.Checkpoint

	log.WithFields(log.Fields{
		"matches":    len(matches),
		"players":    len(players),
		"processed":  len(processed),
		"checkpoint": seed.Checkpoint,
		"lastOrder":  seed.LastOrder.String(),
	}).Info("Loaded persisted leaderboard state")

	return &PersistedState{Seed: seed, Processed: processed}, nil
}
