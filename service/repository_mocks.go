package service

import (
	"context"

	"gamestake/models"

	"github.com/stretchr/testify/mock"
)

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Upsert(ctx context.Context, match *models.MatchRecord) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchRecord), args.Error(1)
}

func (m *MockMatchRepository) GetAll(ctx context.Context) ([]*models.MatchRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchRecord), args.Error(1)
}

// MockPlayerStatsRepository is a mock implementation of PlayerStatsRepository
type MockPlayerStatsRepository struct {
	mock.Mock
}

func (m *MockPlayerStatsRepository) Upsert(ctx context.Context, stats *models.PlayerStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockPlayerStatsRepository) GetAll(ctx context.Context) ([]*models.PlayerStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlayerStats), args.Error(1)
}

// MockProcessedEventRepository is a mock implementation of ProcessedEventRepository
type MockProcessedEventRepository struct {
	mock.Mock
}

func (m *MockProcessedEventRepository) MarkProcessed(ctx context.Context, events []models.ProcessedEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockProcessedEventRepository) ListSince(ctx context.Context, block uint64) ([]models.ProcessedEvent, error) {
	args := m.Called(ctx, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessedEvent), args.Error(1)
}

func (m *MockProcessedEventRepository) PruneBefore(ctx context.Context, block uint64) (int64, error) {
	args := m.Called(ctx, block)
	return args.Get(0).(int64), args.Error(1)
}

// MockCheckpointRepository is a mock implementation of CheckpointRepository
type MockCheckpointRepository struct {
	mock.Mock
}

func (m *MockCheckpointRepository) Get(ctx context.Context) (*models.Checkpoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Checkpoint), args.Error(1)
}

func (m *MockCheckpointRepository) Save(ctx context.Context, checkpoint *models.Checkpoint) error {
	args := m.Called(ctx, checkpoint)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	matchRepo          MatchRepository
	playerStatsRepo    PlayerStatsRepository
	processedEventRepo ProcessedEventRepository
	checkpointRepo     CheckpointRepository
}

// SetRepositories sets the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(matches MatchRepository, players PlayerStatsRepository, processed ProcessedEventRepository, checkpoints CheckpointRepository) {
	m.matchRepo = matches
	m.playerStatsRepo = players
	m.processedEventRepo = processed
	m.checkpointRepo = checkpoints
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MatchRepository() MatchRepository {
	return m.matchRepo
}

func (m *MockUnitOfWork) PlayerStatsRepository() PlayerStatsRepository {
	return m.playerStatsRepo
}

func (m *MockUnitOfWork) ProcessedEventRepository() ProcessedEventRepository {
	return m.processedEventRepo
}

func (m *MockUnitOfWork) CheckpointRepository() CheckpointRepository {
	return m.checkpointRepo
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
