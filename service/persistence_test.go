package service

import (
	"context"
	"errors"
	"testing"

	"gamestake/models"
	"gamestake/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type journalMocks struct {
	factory     *MockUnitOfWorkFactory
	uow         *MockUnitOfWork
	matches     *MockMatchRepository
	players     *MockPlayerStatsRepository
	processed   *MockProcessedEventRepository
	checkpoints *MockCheckpointRepository
}

func newJournalMocks() *journalMocks {
	m := &journalMocks{
		factory:     new(MockUnitOfWorkFactory),
		uow:         new(MockUnitOfWork),
		matches:     new(MockMatchRepository),
		players:     new(MockPlayerStatsRepository),
		processed:   new(MockProcessedEventRepository),
		checkpoints: new(MockCheckpointRepository),
	}
	m.uow.SetRepositories(m.matches, m.players, m.processed, m.checkpoints)
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Rollback").Return(nil)
	return m
}

func (m *journalMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.matches.AssertExpectations(t)
	m.players.AssertExpectations(t)
	m.processed.AssertExpectations(t)
	m.checkpoints.AssertExpectations(t)
}

func processedAt(block uint64) models.ProcessedEvent {
	return models.ProcessedEvent{
		Identity: models.Identity{TxHash: "0xabc", LogIndex: 0},
		Order:    models.BlockOrder{Block: block},
	}
}

func TestJournal_PersistWritesOneTransaction(t *testing.T) {
	ctx := context.Background()
	m := newJournalMocks()
	journal := NewJournal(m.factory, 100)

	match := &models.MatchRecord{MatchID: "0x01"}
	player := models.NewPlayerStats(address(1))
	checkpoint := uint64(500)
	changes := &store.Changes{
		Matches:    []*models.MatchRecord{match},
		Players:    []*models.PlayerStats{player},
		Processed:  []models.ProcessedEvent{processedAt(500)},
		LastOrder:  models.BlockOrder{Block: 500},
		Checkpoint: &checkpoint,
	}

	m.matches.On("Upsert", ctx, match).Return(nil)
	m.players.On("Upsert", ctx, player).Return(nil)
	m.processed.On("MarkProcessed", ctx, changes.Processed).Return(nil)
	m.checkpoints.On("Save", ctx, mock.MatchedBy(func(cp *models.Checkpoint) bool {
		return cp.Block == 500 && cp.LastOrder.Block == 500
	})).Return(nil)
	m.processed.On("PruneBefore", ctx, uint64(400)).Return(int64(12), nil)
	m.uow.On("Commit").Return(nil)

	require.NoError(t, journal.Persist(ctx, changes))
	m.assertExpectations(t)
}

func TestJournal_PersistSkipsUnchangedCheckpoint(t *testing.T) {
	ctx := context.Background()
	m := newJournalMocks()
	journal := NewJournal(m.factory, 100)
	journal.lastOrder = models.BlockOrder{Block: 50}
	journal.checkpoint = 50

	player := models.NewPlayerStats(address(1))
	m.players.On("Upsert", ctx, player).Return(nil)
	m.processed.On("MarkProcessed", ctx, mock.Anything).Return(nil)
	m.uow.On("Commit").Return(nil)

	err := journal.Persist(ctx, &store.Changes{
		Players:   []*models.PlayerStats{player},
		Processed: []models.ProcessedEvent{processedAt(40)},
		LastOrder: models.BlockOrder{Block: 40},
	})
	require.NoError(t, err)

	m.checkpoints.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.processed.AssertNotCalled(t, "PruneBefore", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestJournal_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newJournalMocks()
	journal := NewJournal(m.factory, 0)

	player := models.NewPlayerStats(address(1))
	m.players.On("Upsert", ctx, player).Return(errors.New("disk full"))

	checkpoint := uint64(9)
	err := journal.Persist(ctx, &store.Changes{
		Players:    []*models.PlayerStats{player},
		Checkpoint: &checkpoint,
	})
	require.Error(t, err)

	m.uow.AssertNotCalled(t, "Commit")
	m.uow.AssertCalled(t, "Rollback")
	assert.Equal(t, uint64(0), journal.checkpoint, "failed persist must not advance the journal")
}

func TestJournal_LoadState(t *testing.T) {
	ctx := context.Background()
	m := newJournalMocks()
	journal := NewJournal(m.factory, 1000)

	matches := []*models.MatchRecord{{MatchID: "0x01"}}
	players := []*models.PlayerStats{models.NewPlayerStats(address(1))}
	processed := []models.ProcessedEvent{processedAt(4500)}

	m.matches.On("GetAll", ctx).Return(matches, nil)
	m.players.On("GetAll", ctx).Return(players, nil)
	m.checkpoints.On("Get", ctx).Return(&models.Checkpoint{
		Block:     4800,
		LastOrder: models.BlockOrder{Block: 5000, LogIndex: 2},
	}, nil)
	m.processed.On("ListSince", ctx, uint64(3800)).Return(processed, nil)
	m.uow.On("Commit").Return(nil)

	state, err := journal.LoadState(ctx)
	require.NoError(t, err)

	assert.Equal(t, matches, state.Seed.Matches)
	assert.Equal(t, players, state.Seed.Players)
	assert.Equal(t, uint64(4800), state.Seed.Checkpoint)
	assert.Equal(t, models.BlockOrder{Block: 5000, LogIndex: 2}, state.Seed.LastOrder)
	assert.Equal(t, processed, state.Processed)
	assert.Equal(t, uint64(4800), journal.checkpoint)
	m.assertExpectations(t)
}

func TestJournal_LoadStateEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	m := newJournalMocks()
	journal := NewJournal(m.factory, 1000)

	m.matches.On("GetAll", ctx).Return(nil, nil)
	m.players.On("GetAll", ctx).Return(nil, nil)
	m.checkpoints.On("Get", ctx).Return(nil, nil)
	m.processed.On("ListSince", ctx, uint64(0)).Return(nil, nil)
	m.uow.On("Commit").Return(nil)

	state, err := journal.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.Seed.Checkpoint)
	assert.Empty(t, state.Processed)
}
