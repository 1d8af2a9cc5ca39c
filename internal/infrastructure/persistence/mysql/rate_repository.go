package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvc-server/internal/domain/rate"
)

// ConversionRateRepository MySQL実装のConversionRateRepository
type ConversionRateRepository struct {
	db     querier
	tracer trace.Tracer
}

// NewConversionRateRepository 新しいConversionRateRepositoryを作成
func NewConversionRateRepository(db *DB) *ConversionRateRepository {
	return &ConversionRateRepository{
		db:     db,
		tracer: otel.Tracer("rate-repository"),
	}
}

// WithTx トランザクションに束縛されたリポジトリを返す
func (r *ConversionRateRepository) WithTx(tx *sql.Tx) rate.ConversionRateRepository {
	return &ConversionRateRepository{db: tx, tracer: r.tracer}
}

const rateColumns = `
	rate_id, points_per_cvc, minimum_points, minimum_cvc, claim_fee_eth,
	is_active, effective_from, created_by, created_at
`

// FindActive 現在有効なレートを取得
func (r *ConversionRateRepository) FindActive(ctx context.Context) (*rate.ConversionRate, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRateRepository.FindActive")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversion_rates"),
	)

	query := `
		SELECT` + rateColumns + `
		FROM conversion_rates
		WHERE is_active = TRUE AND effective_from <= CURRENT_TIMESTAMP
		ORDER BY effective_from DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query)
	entity, err := scanRate(row)
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "active rate not found")
		return nil, rate.ErrNoActiveRate
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find active rate: %w", err)
	}

	span.SetAttributes(attribute.String("db.rate_id", entity.RateID()))
	span.SetStatus(otelcodes.Ok, "active rate found")
	return entity, nil
}

// Create 新しいレートを保存
func (r *ConversionRateRepository) Create(ctx context.Context, entity *rate.ConversionRate) error {
	ctx, span := r.tracer.Start(ctx, "ConversionRateRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.rate_id", entity.RateID()),
		attribute.Int64("db.points_per_cvc", entity.PointsPerCVC()),
		attribute.Bool("db.is_active", entity.IsActive()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "conversion_rates"),
	)

	query := `
		INSERT INTO conversion_rates (
			rate_id, points_per_cvc, minimum_points, minimum_cvc, claim_fee_eth,
			is_active, effective_from, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entity.RateID(),
		entity.PointsPerCVC(),
		entity.MinimumPoints(),
		entity.MinimumCVC().String(),
		entity.ClaimFeeETH().String(),
		entity.IsActive(),
		entity.EffectiveFrom(),
		entity.CreatedBy(),
		entity.CreatedAt(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create rate: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "rate created")
	return nil
}

// DeactivateAll すべてのレートを無効化
// 有効なレートは常に1件以下という不変条件を新レート投入前に保証する
func (r *ConversionRateRepository) DeactivateAll(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "ConversionRateRepository.DeactivateAll")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "conversion_rates"),
	)

	query := `
		UPDATE conversion_rates
		SET is_active = FALSE
		WHERE is_active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to deactivate rates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "rates deactivated")
	return nil
}

// FindAll レート履歴を取得（作成日時降順、ページネーション対応）
func (r *ConversionRateRepository) FindAll(ctx context.Context, limit, offset int) ([]*rate.ConversionRate, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRateRepository.FindAll")
	defer span.End()

	span.SetAttributes(
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversion_rates"),
	)

	query := `
		SELECT` + rateColumns + `
		FROM conversion_rates
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var rates []*rate.ConversionRate
	for rows.Next() {
		entity, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, entity)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate rates: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", len(rates)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d rates", len(rates)))
	return rates, nil
}

// Count レートの総件数を取得
func (r *ConversionRateRepository) Count(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRateRepository.Count")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversion_rates"),
	)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversion_rates`).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count rates: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", count))
	span.SetStatus(otelcodes.Ok, "rates counted")
	return count, nil
}

// rowScanner sql.Rowとsql.Rowsの共通スキャンインターフェース
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRate 1行をConversionRateエンティティに復元する
func scanRate(row rowScanner) (*rate.ConversionRate, error) {
	var rateID, createdBy string
	var pointsPerCVC, minimumPoints int64
	var minimumCVCStr, claimFeeStr string
	var isActive bool
	var effectiveFrom, createdAt time.Time

	if err := row.Scan(
		&rateID,
		&pointsPerCVC,
		&minimumPoints,
		&minimumCVCStr,
		&claimFeeStr,
		&isActive,
		&effectiveFrom,
		&createdBy,
		&createdAt,
	); err != nil {
		return nil, err
	}

	minimumCVC, err := decimal.NewFromString(minimumCVCStr)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum cvc value: %w", err)
	}

	claimFee, err := decimal.NewFromString(claimFeeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid claim fee value: %w", err)
	}

	return rate.Reconstruct(
		rateID,
		pointsPerCVC,
		minimumPoints,
		minimumCVC,
		claimFee,
		isActive,
		effectiveFrom,
		createdBy,
		createdAt,
	), nil
}
