package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"cvc-server/internal/domain/rate"
)

var rateTestColumns = []string{
	"rate_id", "points_per_cvc", "minimum_points", "minimum_cvc", "claim_fee_eth",
	"is_active", "effective_from", "created_by", "created_at",
}

func TestConversionRateRepository_FindActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &ConversionRateRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}

	now := time.Now()

	tests := []struct {
		name      string
		setupMock func()
		checkRate func(*testing.T, *rate.ConversionRate)
		wantError bool
		errorType error
	}{
		{
			name: "正常系: 有効なレートが見つかる",
			setupMock: func() {
				rows := sqlmock.NewRows(rateTestColumns).
					AddRow("rate123", 100, 100, "1", "0.0001", true, now, "admin123", now)
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WillReturnRows(rows)
			},
			checkRate: func(t *testing.T, r *rate.ConversionRate) {
				assert.Equal(t, "rate123", r.RateID())
				assert.Equal(t, int64(100), r.PointsPerCVC())
				assert.Equal(t, int64(100), r.MinimumPoints())
				assert.True(t, decimal.NewFromInt(1).Equal(r.MinimumCVC()))
				assert.True(t, decimal.RequireFromString("0.0001").Equal(r.ClaimFeeETH()))
				assert.True(t, r.IsActive())
				assert.Equal(t, "admin123", r.CreatedBy())
			},
			wantError: false,
		},
		{
			name: "異常系: 有効なレートが存在しない",
			setupMock: func() {
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WillReturnError(sql.ErrNoRows)
			},
			wantError: true,
			errorType: rate.ErrNoActiveRate,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func() {
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
		{
			name: "異常系: 不正な10進数値",
			setupMock: func() {
				rows := sqlmock.NewRows(rateTestColumns).
					AddRow("rate123", 100, 100, "not-a-number", "0.0001", true, now, "admin123", now)
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WillReturnRows(rows)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()
			ctx := context.Background()
			got, err := repo.FindActive(ctx)

			if tt.wantError {
				assert.Error(t, err)
				if tt.errorType != nil {
					assert.Equal(t, tt.errorType, err)
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				tt.checkRate(t, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConversionRateRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &ConversionRateRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}

	entity := rate.MustNewConversionRate(
		"rate123", 100, 100,
		decimal.NewFromInt(1), decimal.RequireFromString("0.0001"),
		true, time.Now(), "admin123",
	)

	tests := []struct {
		name      string
		setupMock func()
		wantError bool
	}{
		{
			name: "正常系: レートを保存",
			setupMock: func() {
				mock.ExpectExec(`INSERT INTO conversion_rates`).
					WithArgs("rate123", int64(100), int64(100), "1", "0.0001", true, sqlmock.AnyArg(), "admin123", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			wantError: false,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func() {
				mock.ExpectExec(`INSERT INTO conversion_rates`).
					WithArgs("rate123", int64(100), int64(100), "1", "0.0001", true, sqlmock.AnyArg(), "admin123", sqlmock.AnyArg()).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()
			ctx := context.Background()
			err := repo.Create(ctx, entity)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConversionRateRepository_DeactivateAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &ConversionRateRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}

	tests := []struct {
		name      string
		setupMock func()
		wantError bool
	}{
		{
			name: "正常系: 有効なレートを無効化",
			setupMock: func() {
				mock.ExpectExec(`UPDATE conversion_rates`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantError: false,
		},
		{
			name: "正常系: 無効化対象がなくても成功",
			setupMock: func() {
				mock.ExpectExec(`UPDATE conversion_rates`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantError: false,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func() {
				mock.ExpectExec(`UPDATE conversion_rates`).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()
			ctx := context.Background()
			err := repo.DeactivateAll(ctx)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConversionRateRepository_FindAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &ConversionRateRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}

	now := time.Now()

	tests := []struct {
		name      string
		setupMock func()
		wantCount int
		wantError bool
	}{
		{
			name: "正常系: レート履歴を取得",
			setupMock: func() {
				rows := sqlmock.NewRows(rateTestColumns).
					AddRow("rate2", 200, 200, "1", "0.0001", true, now, "admin123", now).
					AddRow("rate1", 100, 100, "1", "0.0001", false, now.Add(-time.Hour), "admin123", now.Add(-time.Hour))
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WithArgs(20, 0).
					WillReturnRows(rows)
			},
			wantCount: 2,
			wantError: false,
		},
		{
			name: "正常系: レートが空",
			setupMock: func() {
				rows := sqlmock.NewRows(rateTestColumns)
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WithArgs(20, 0).
					WillReturnRows(rows)
			},
			wantCount: 0,
			wantError: false,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func() {
				mock.ExpectQuery(`SELECT(.|\n)*FROM conversion_rates`).
					WithArgs(20, 0).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()
			ctx := context.Background()
			got, err := repo.FindAll(ctx, 20, 0)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, got, tt.wantCount)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConversionRateRepository_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &ConversionRateRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}

	tests := []struct {
		name      string
		setupMock func()
		want      int
		wantError bool
	}{
		{
			name: "正常系: レート件数を取得",
			setupMock: func() {
				rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conversion_rates`).
					WillReturnRows(rows)
			},
			want:      3,
			wantError: false,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func() {
				mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conversion_rates`).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()
			ctx := context.Background()
			got, err := repo.Count(ctx)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
