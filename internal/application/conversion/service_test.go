package conversion

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"cvc-server/internal/domain/conversion"
	"cvc-server/internal/domain/points"
	"cvc-server/internal/domain/rate"
	"cvc-server/internal/domain/service"
	"cvc-server/internal/infrastructure/config"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
)

// MockConversionRepository モック変換リポジトリ
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

// MockRateRepository モックレートリポジトリ
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

// MockBalanceRepository モック残高リポジトリ
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

// MockHistoryRepository モック履歴リポジトリ
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
	// 実際のトランザクションは使わず、関数を直接実行
	if fn != nil {
		return fn(nil)
	}
	return args.Error(0)
}

func activeTestRate() *rate.ConversionRate {
	return rate.MustNewConversionRate(
		"rate123",
		100,
		100,
		decimal.NewFromInt(1),
		decimal.RequireFromString("0.0001"),
		true,
		time.Now().Add(-time.Hour),
		"admin123",
	)
}

func newTestService(
	mcr *MockConversionRepository,
	mrr *MockRateRepository,
	mbr *MockBalanceRepository,
	mhr *MockHistoryRepository,
	mtm *MockTransactionManager,
) *ConversionApplicationService {
	tracer := otel.Tracer("test")
	logger := otelinfra.NewLogger(tracer)
	metrics, err := otelinfra.NewMetrics("test")
	if err != nil {
		panic(err)
	}
	network := config.NetworkConfig{
		Network:                  "BSC",
		CompanyWallet:            "0x" + strings.Repeat("1", 40),
		CVCContractAddress:       "0x" + strings.Repeat("2", 40),
		LiquidityContractAddress: "0x" + strings.Repeat("3", 40),
	}
	return NewConversionApplicationService(
		mcr, mbr, mhr, mtm,
		service.NewConversionService(mrr, mbr),
		network,
		logger,
		metrics,
	)
}

func TestConversionApplicationService_Create(t *testing.T) {
	tests := []struct {
		name       string
		req        *CreateConversionRequest
		setupMocks func(*MockConversionRepository, *MockRateRepository, *MockBalanceRepository, *MockHistoryRepository, *MockTransactionManager)
		wantError  bool
		checkFunc  func(*testing.T, *CreateConversionResponse, error)
	}{
		{
			name: "正常系: 変換リクエスト作成",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil)
				mbr.On("Save", mock.Anything, mock.Anything).Return(nil)
				mcr.On("Save", mock.Anything, mock.Anything).Return(nil)
				mhr.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(got.ConversionID, "cnv_"))
				assert.Equal(t, int64(500), got.PointsConverted)
				assert.Equal(t, int64(5), got.CVCAmount)
				assert.Equal(t, int64(100), got.ConversionRate)
				assert.Equal(t, "0.0001", got.ClaimFee)
				assert.Equal(t, "pending", got.Status)
			},
		},
		{
			name: "異常系: 有効レートなし",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(nil, rate.ErrNoActiveRate)
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.Error(t, err)
				var ve *rate.ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Equal(t, "Points conversion is currently disabled", err.Error())
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: 最低ポイント未満",
			req:  &CreateConversionRequest{UserID: "user123", Points: 50},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil)
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.Error(t, err)
				var ve *rate.ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Equal(t, "Minimum 100 points required for conversion", err.Error())
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: 残高不足",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 300, 1), nil)
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				assert.ErrorIs(t, err, points.ErrInsufficientPoints)
				assert.Nil(t, got)
			},
		},
		{
			name: "正常系: 楽観的ロック競合後リトライ成功",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				// リトライごとに再取得するため、試行単位で別のエンティティを返す
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil).Once()
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil).Once()
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 2), nil).Once()
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 2), nil).Once()
				mbr.On("Save", mock.Anything, mock.Anything).Return(errors.New("optimistic lock failed")).Once()
				mbr.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
				mcr.On("Save", mock.Anything, mock.Anything).Return(nil)
				mhr.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(5), got.CVCAmount)
			},
		},
		{
			name: "異常系: 最大リトライ回数超過",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				// 3試行 × (検証時と減算時の2回取得)
				for i := 0; i < 6; i++ {
					mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil).Once()
				}
				mbr.On("Save", mock.Anything, mock.Anything).Return(errors.New("optimistic lock failed"))
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "optimistic lock failed")
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: 履歴追記エラー",
			req:  &CreateConversionRequest{UserID: "user123", Points: 500},
			setupMocks: func(mcr *MockConversionRepository, mrr *MockRateRepository, mbr *MockBalanceRepository, mhr *MockHistoryRepository, mtm *MockTransactionManager) {
				mtm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil)
				mbr.On("Save", mock.Anything, mock.Anything).Return(nil)
				mcr.On("Save", mock.Anything, mock.Anything).Return(nil)
				mhr.On("Append", mock.Anything, mock.Anything).Return(errors.New("database error"))
			},
			checkFunc: func(t *testing.T, got *CreateConversionResponse, err error) {
				require.Error(t, err)
				assert.Nil(t, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcr := new(MockConversionRepository)
			mrr := new(MockRateRepository)
			mbr := new(MockBalanceRepository)
			mhr := new(MockHistoryRepository)
			mtm := new(MockTransactionManager)

			tt.setupMocks(mcr, mrr, mbr, mhr, mtm)

			svc := newTestService(mcr, mrr, mbr, mhr, mtm)
			got, err := svc.Create(context.Background(), tt.req)

			tt.checkFunc(t, got, err)
			mcr.AssertExpectations(t)
			mbr.AssertExpectations(t)
			mhr.AssertExpectations(t)
		})
	}
}

func TestConversionApplicationService_Claim(t *testing.T) {
	wallet := "0x" + strings.Repeat("a", 40)
	txHash := "0x" + strings.Repeat("b", 64)

	approvedConversion := func(userID string) *conversion.Conversion {
		approvedAt := time.Now().Add(-time.Minute)
		return conversion.Reconstruct(
			"cnv123",
			conversion.NewUserRef(userID),
			500, 5, 100,
			decimal.RequireFromString("0.0001"),
			conversion.ConversionStatusApproved,
			"", "", "", "admin123",
			&approvedAt, nil,
			time.Now().Add(-time.Hour), time.Now().Add(-time.Minute),
		)
	}

	tests := []struct {
		name       string
		req        *ClaimRequest
		setupMocks func(*MockConversionRepository)
		checkFunc  func(*testing.T, *ClaimResponse, error)
	}{
		{
			name: "正常系: 承認済み変換をクレーム",
			req:  &ClaimRequest{UserID: "user123", ConversionID: "cnv123", WalletAddress: wallet, TransactionHash: txHash},
			setupMocks: func(mcr *MockConversionRepository) {
				mcr.On("FindByConversionID", mock.Anything, "cnv123").Return(approvedConversion("user123"), nil)
				mcr.On("Update", mock.Anything, mock.Anything).Return(nil)
			},
			checkFunc: func(t *testing.T, got *ClaimResponse, err error) {
				require.NoError(t, err)
				assert.Equal(t, "cnv123", got.ConversionID)
				assert.Equal(t, int64(5), got.CVCAmount)
				assert.Equal(t, wallet, got.WalletAddress)
				assert.Equal(t, txHash, got.TransactionHash)
				assert.Equal(t, "claimed", got.Status)
				assert.False(t, got.ClaimedAt.IsZero())
			},
		},
		{
			name: "異常系: 他人の変換",
			req:  &ClaimRequest{UserID: "user456", ConversionID: "cnv123", WalletAddress: wallet, TransactionHash: txHash},
			setupMocks: func(mcr *MockConversionRepository) {
				mcr.On("FindByConversionID", mock.Anything, "cnv123").Return(approvedConversion("user123"), nil)
			},
			checkFunc: func(t *testing.T, got *ClaimResponse, err error) {
				assert.ErrorIs(t, err, conversion.ErrNotOwner)
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: pending状態の変換",
			req:  &ClaimRequest{UserID: "user123", ConversionID: "cnv123", WalletAddress: wallet, TransactionHash: txHash},
			setupMocks: func(mcr *MockConversionRepository) {
				c, err := conversion.NewConversion("cnv123", conversion.NewUserRef("user123"), 500, 5, 100, decimal.RequireFromString("0.0001"))
				if err != nil {
					panic(err)
				}
				mcr.On("FindByConversionID", mock.Anything, "cnv123").Return(c, nil)
			},
			checkFunc: func(t *testing.T, got *ClaimResponse, err error) {
				assert.ErrorIs(t, err, conversion.ErrNotApproved)
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: ウォレットアドレス形式不正",
			req:  &ClaimRequest{UserID: "user123", ConversionID: "cnv123", WalletAddress: "invalid", TransactionHash: txHash},
			setupMocks: func(mcr *MockConversionRepository) {
				mcr.On("FindByConversionID", mock.Anything, "cnv123").Return(approvedConversion("user123"), nil)
			},
			checkFunc: func(t *testing.T, got *ClaimResponse, err error) {
				assert.ErrorIs(t, err, conversion.ErrInvalidWalletAddress)
				assert.Nil(t, got)
			},
		},
		{
			name: "異常系: 変換が存在しない",
			req:  &ClaimRequest{UserID: "user123", ConversionID: "cnv999", WalletAddress: wallet, TransactionHash: txHash},
			setupMocks: func(mcr *MockConversionRepository) {
				mcr.On("FindByConversionID", mock.Anything, "cnv999").Return(nil, conversion.ErrConversionNotFound)
			},
			checkFunc: func(t *testing.T, got *ClaimResponse, err error) {
				assert.ErrorIs(t, err, conversion.ErrConversionNotFound)
				assert.Nil(t, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcr := new(MockConversionRepository)
			tt.setupMocks(mcr)

			svc := newTestService(mcr, new(MockRateRepository), new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
			got, err := svc.Claim(context.Background(), tt.req)

			tt.checkFunc(t, got, err)
			mcr.AssertExpectations(t)
		})
	}
}

func TestConversionApplicationService_List(t *testing.T) {
	t.Run("正常系: 一覧と集計を取得", func(t *testing.T) {
		mcr := new(MockConversionRepository)
		c, err := conversion.NewConversion("cnv123", conversion.NewUserRef("user123"), 500, 5, 100, decimal.RequireFromString("0.0001"))
		require.NoError(t, err)
		mcr.On("FindByUserID", mock.Anything, "user123", 20, 0).Return([]*conversion.Conversion{c}, nil)
		mcr.On("CountByUserID", mock.Anything, "user123").Return(41, nil)
		mcr.On("StatsByUserID", mock.Anything, "user123").Return(&conversion.UserStats{
			TotalPointsConverted: 500,
			TotalCVCClaimed:      0,
			PendingConversions:   1,
		}, nil)

		svc := newTestService(mcr, new(MockRateRepository), new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.List(context.Background(), &ListConversionsRequest{UserID: "user123"})

		require.NoError(t, err)
		require.Len(t, got.Conversions, 1)
		assert.Equal(t, "cnv123", got.Conversions[0].ConversionID)
		assert.Equal(t, "user123", got.Conversions[0].User.UserID)
		assert.Equal(t, 1, got.Pagination.Page)
		assert.Equal(t, 20, got.Pagination.Limit)
		assert.Equal(t, 41, got.Pagination.Total)
		assert.Equal(t, 3, got.Pagination.TotalPages)
		assert.Equal(t, int64(500), got.Stats.TotalPointsConverted)
		mcr.AssertExpectations(t)
	})

	t.Run("正常系: ページネーション指定", func(t *testing.T) {
		mcr := new(MockConversionRepository)
		mcr.On("FindByUserID", mock.Anything, "user123", 10, 20).Return([]*conversion.Conversion{}, nil)
		mcr.On("CountByUserID", mock.Anything, "user123").Return(25, nil)
		mcr.On("StatsByUserID", mock.Anything, "user123").Return(&conversion.UserStats{}, nil)

		svc := newTestService(mcr, new(MockRateRepository), new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.List(context.Background(), &ListConversionsRequest{UserID: "user123", Page: 3, Limit: 10})

		require.NoError(t, err)
		assert.Equal(t, 3, got.Pagination.Page)
		assert.Equal(t, 3, got.Pagination.TotalPages)
		assert.Empty(t, got.Conversions)
	})

	t.Run("正常系: 上限超過のlimitは丸められる", func(t *testing.T) {
		mcr := new(MockConversionRepository)
		mcr.On("FindByUserID", mock.Anything, "user123", 100, 0).Return([]*conversion.Conversion{}, nil)
		mcr.On("CountByUserID", mock.Anything, "user123").Return(0, nil)
		mcr.On("StatsByUserID", mock.Anything, "user123").Return(&conversion.UserStats{}, nil)

		svc := newTestService(mcr, new(MockRateRepository), new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.List(context.Background(), &ListConversionsRequest{UserID: "user123", Page: 1, Limit: 500})

		require.NoError(t, err)
		assert.Equal(t, 100, got.Pagination.Limit)
	})

	t.Run("異常系: 取得エラー", func(t *testing.T) {
		mcr := new(MockConversionRepository)
		mcr.On("FindByUserID", mock.Anything, "user123", 20, 0).Return(nil, errors.New("database error"))

		svc := newTestService(mcr, new(MockRateRepository), new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.List(context.Background(), &ListConversionsRequest{UserID: "user123"})

		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestConversionApplicationService_GetCurrentRate(t *testing.T) {
	t.Run("正常系: 有効レートとチェーン情報", func(t *testing.T) {
		mrr := new(MockRateRepository)
		mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)

		svc := newTestService(new(MockConversionRepository), mrr, new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.GetCurrentRate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(100), got.PointsPerCVC)
		assert.Equal(t, int64(100), got.MinimumPoints)
		assert.Equal(t, "1", got.MinimumCVC)
		assert.Equal(t, "0.0001", got.ClaimFeeETH)
		assert.True(t, got.IsActive)
		assert.Equal(t, "BSC", got.Network)
		assert.Equal(t, "0x"+strings.Repeat("1", 40), got.CompanyWallet)
	})

	t.Run("異常系: 有効レートなし", func(t *testing.T) {
		mrr := new(MockRateRepository)
		mrr.On("FindActive", mock.Anything).Return(nil, rate.ErrNoActiveRate)

		svc := newTestService(new(MockConversionRepository), mrr, new(MockBalanceRepository), new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.GetCurrentRate(context.Background())

		assert.ErrorIs(t, err, rate.ErrNoActiveRate)
		assert.Nil(t, got)
	})
}

func TestConversionApplicationService_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        *ValidateRequest
		setupMocks func(*MockRateRepository, *MockBalanceRepository)
		want       *ValidateResponse
		wantError  bool
	}{
		{
			name: "正常系: 変換可能",
			req:  &ValidateRequest{UserID: "user123", Points: 500},
			setupMocks: func(mrr *MockRateRepository, mbr *MockBalanceRepository) {
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil)
			},
			want: &ValidateResponse{Valid: true, CVCAmount: 5, CurrentBalance: 1000},
		},
		{
			name: "正常系: 有効レートなしはドライラン結果",
			req:  &ValidateRequest{UserID: "user123", Points: 500},
			setupMocks: func(mrr *MockRateRepository, mbr *MockBalanceRepository) {
				mrr.On("FindActive", mock.Anything).Return(nil, rate.ErrNoActiveRate)
			},
			want: &ValidateResponse{Valid: false, Message: "Points conversion is currently disabled"},
		},
		{
			name: "正常系: 最低ポイント未満はドライラン結果",
			req:  &ValidateRequest{UserID: "user123", Points: 50},
			setupMocks: func(mrr *MockRateRepository, mbr *MockBalanceRepository) {
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1000, 1), nil)
			},
			want: &ValidateResponse{Valid: false, Message: "Minimum 100 points required for conversion"},
		},
		{
			name: "正常系: 残高不足はドライラン結果",
			req:  &ValidateRequest{UserID: "user123", Points: 500},
			setupMocks: func(mrr *MockRateRepository, mbr *MockBalanceRepository) {
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 300, 1), nil)
			},
			want: &ValidateResponse{Valid: false, Message: "Insufficient points balance"},
		},
		{
			name: "異常系: 残高取得エラーは伝播",
			req:  &ValidateRequest{UserID: "user123", Points: 500},
			setupMocks: func(mrr *MockRateRepository, mbr *MockBalanceRepository) {
				mrr.On("FindActive", mock.Anything).Return(activeTestRate(), nil)
				mbr.On("FindByUserID", mock.Anything, "user123").Return(nil, errors.New("database error"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mrr := new(MockRateRepository)
			mbr := new(MockBalanceRepository)
			tt.setupMocks(mrr, mbr)

			svc := newTestService(new(MockConversionRepository), mrr, mbr, new(MockHistoryRepository), new(MockTransactionManager))
			got, err := svc.Validate(context.Background(), tt.req)

			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Valid, got.Valid)
			assert.Equal(t, tt.want.CVCAmount, got.CVCAmount)
			assert.Equal(t, tt.want.CurrentBalance, got.CurrentBalance)
			assert.Equal(t, tt.want.Message, got.Message)
		})
	}
}

func TestConversionApplicationService_GetBalance(t *testing.T) {
	t.Run("正常系: 残高取得", func(t *testing.T) {
		mbr := new(MockBalanceRepository)
		mbr.On("FindByUserID", mock.Anything, "user123").Return(points.MustNewBalance("user123", 1500, 3), nil)

		svc := newTestService(new(MockConversionRepository), new(MockRateRepository), mbr, new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.GetBalance(context.Background(), "user123")

		require.NoError(t, err)
		assert.Equal(t, "user123", got.UserID)
		assert.Equal(t, int64(1500), got.TotalPoints)
	})

	t.Run("異常系: 残高が存在しない", func(t *testing.T) {
		mbr := new(MockBalanceRepository)
		mbr.On("FindByUserID", mock.Anything, "user999").Return(nil, points.ErrBalanceNotFound)

		svc := newTestService(new(MockConversionRepository), new(MockRateRepository), mbr, new(MockHistoryRepository), new(MockTransactionManager))
		got, err := svc.GetBalance(context.Background(), "user999")

		assert.ErrorIs(t, err, points.ErrBalanceNotFound)
		assert.Nil(t, got)
	})
}

func TestConversionApplicationService_ListHistory(t *testing.T) {
	t.Run("正常系: 履歴一覧取得", func(t *testing.T) {
		mhr := new(MockHistoryRepository)
		entry := points.MustNewHistoryEntry("hist123", "user123", points.HistoryTypeConversionDeduction, -500, "Converted 500 points to 5 CVC", "cnv123")
		mhr.On("FindByUserID", mock.Anything, "user123", 20, 0).Return([]*points.HistoryEntry{entry}, nil)
		mhr.On("CountByUserID", mock.Anything, "user123").Return(1, nil)

		svc := newTestService(new(MockConversionRepository), new(MockRateRepository), new(MockBalanceRepository), mhr, new(MockTransactionManager))
		got, err := svc.ListHistory(context.Background(), &ListHistoryRequest{UserID: "user123"})

		require.NoError(t, err)
		require.Len(t, got.History, 1)
		assert.Equal(t, "hist123", got.History[0].HistoryID)
		assert.Equal(t, "conversion_deduction", got.History[0].Type)
		assert.Equal(t, int64(-500), got.History[0].Points)
		assert.Equal(t, "cnv123", got.History[0].RelatedID)
		assert.Equal(t, 1, got.Pagination.Total)
	})

	t.Run("異常系: 取得エラー", func(t *testing.T) {
		mhr := new(MockHistoryRepository)
		mhr.On("FindByUserID", mock.Anything, "user123", 20, 0).Return(nil, errors.New("database error"))

		svc := newTestService(new(MockConversionRepository), new(MockRateRepository), new(MockBalanceRepository), mhr, new(MockTransactionManager))
		got, err := svc.ListHistory(context.Background(), &ListHistoryRequest{UserID: "user123"})

		assert.Error(t, err)
		assert.Nil(t, got)
	})
}
