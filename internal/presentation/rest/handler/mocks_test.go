package handler

import (
	"context"
	"database/sql"

	"cvc-server/internal/domain/conversion"
	"cvc-server/internal/domain/points"
	"cvc-server/internal/domain/rate"

	"github.com/stretchr/testify/mock"
)

// MockConversionRepository モック変換台帳リポジトリ
type MockConversionRepository struct {
	mock.Mock
}

func (m *MockConversionRepository) WithTx(tx *sql.Tx) conversion.ConversionRepository {
	return m
}

func (m *MockConversionRepository) Save(ctx context.Context, c *conversion.Conversion) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversionRepository) Update(ctx context.Context, c *conversion.Conversion) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversionRepository) FindByConversionID(ctx context.Context, conversionID string) (*conversion.Conversion, error) {
	args := m.Called(ctx, conversionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversion.Conversion), args.Error(1)
}

func (m *MockConversionRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*conversion.Conversion, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*conversion.Conversion), args.Error(1)
}

func (m *MockConversionRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockConversionRepository) FindAll(ctx context.Context, status string, limit, offset int) ([]*conversion.Conversion, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*conversion.Conversion), args.Error(1)
}

func (m *MockConversionRepository) CountAll(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockConversionRepository) StatsByUserID(ctx context.Context, userID string) (*conversion.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversion.UserStats), args.Error(1)
}

func (m *MockConversionRepository) Stats(ctx context.Context) (*conversion.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversion.Stats), args.Error(1)
}

// MockRateRepository モック変換レートリポジトリ
type MockRateRepository struct {
	mock.Mock
}

func (m *MockRateRepository) WithTx(tx *sql.Tx) rate.ConversionRateRepository {
	return m
}

func (m *MockRateRepository) FindActive(ctx context.Context) (*rate.ConversionRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rate.ConversionRate), args.Error(1)
}

func (m *MockRateRepository) Create(ctx context.Context, r *rate.ConversionRate) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRateRepository) DeactivateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRateRepository) FindAll(ctx context.Context, limit, offset int) ([]*rate.ConversionRate, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rate.ConversionRate), args.Error(1)
}

func (m *MockRateRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockBalanceRepository モックポイント残高リポジトリ
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) WithTx(tx *sql.Tx) points.BalanceRepository {
	return m
}

func (m *MockBalanceRepository) FindByUserID(ctx context.Context, userID string) (*points.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*points.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Save(ctx context.Context, b *points.Balance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) Create(ctx context.Context, b *points.Balance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

// MockHistoryRepository モックポイント履歴リポジトリ
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) WithTx(tx *sql.Tx) points.HistoryRepository {
	return m
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *points.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*points.HistoryEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*points.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockHistoryRepository) SumByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistoryRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockTransactionManager モックトランザクションマネージャー
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	args := m.Called(ctx, fn)
	if fn != nil {
		return fn(nil)
	}
	return args.Error(0)
}
