package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvc-server/internal/domain/points"
)

// ErrOptimisticLock 楽観的ロックの競合
var ErrOptimisticLock = fmt.Errorf("optimistic lock failed: version mismatch or balance not found")

// BalanceRepository MySQL実装のBalanceRepository
type BalanceRepository struct {
	db     querier
	tracer trace.Tracer
}

// NewBalanceRepository 新しいBalanceRepositoryを作成
func NewBalanceRepository(db *DB) *BalanceRepository {
	return &BalanceRepository{
		db:     db,
		tracer: otel.Tracer("balance-repository"),
	}
}

// WithTx トランザクションに束縛されたリポジトリを返す
func (r *BalanceRepository) WithTx(tx *sql.Tx) points.BalanceRepository {
	return &BalanceRepository{db: tx, tracer: r.tracer}
}

// FindByUserID ユーザーIDで残高を取得
func (r *BalanceRepository) FindByUserID(ctx context.Context, userID string) (*points.Balance, error) {
	ctx, span := r.tracer.Start(ctx, "BalanceRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "point_balances"),
	)

	query := `
		SELECT user_id, total_points, version
		FROM point_balances
		WHERE user_id = ?
	`

	var dbUserID string
	var totalPoints int64
	var version int

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&dbUserID,
		&totalPoints,
		&version,
	)

	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "balance not found")
		return nil, points.ErrBalanceNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find balance: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("db.total_points", totalPoints),
		attribute.Int("db.version", version),
	)
	span.SetStatus(otelcodes.Ok, "balance found")

	b, err := points.NewBalance(dbUserID, totalPoints, version)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct balance entity: %w", err)
	}

	return b, nil
}

// Save 残高を保存（更新、楽観的ロック対応）
// エンティティは操作時にversionをインクリメント済みのため、
// WHERE句では1つ前のバージョンと照合する
func (r *BalanceRepository) Save(ctx context.Context, b *points.Balance) error {
	ctx, span := r.tracer.Start(ctx, "BalanceRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", b.UserID()),
		attribute.Int64("db.total_points", b.TotalPoints()),
		attribute.Int("db.version", b.Version()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "point_balances"),
	)

	query := `
		UPDATE point_balances
		SET total_points = ?, version = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		b.TotalPoints(),
		b.Version(),
		b.UserID(),
		b.Version()-1,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to save balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.RecordError(ErrOptimisticLock)
		span.SetStatus(otelcodes.Error, ErrOptimisticLock.Error())
		return ErrOptimisticLock
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "balance saved")
	return nil
}

// Create 新しい残高レコードを作成
func (r *BalanceRepository) Create(ctx context.Context, b *points.Balance) error {
	ctx, span := r.tracer.Start(ctx, "BalanceRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", b.UserID()),
		attribute.Int64("db.total_points", b.TotalPoints()),
		attribute.Int("db.version", b.Version()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "point_balances"),
	)

	// ユーザーが存在するか確認（存在しない場合は作成）
	if err := r.ensureUserExists(ctx, b.UserID()); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}

	query := `
		INSERT INTO point_balances (user_id, total_points, version)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_points = VALUES(total_points),
			version = VALUES(version),
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		b.UserID(),
		b.TotalPoints(),
		b.Version(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create balance: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "balance created")
	return nil
}

// ensureUserExists ユーザーが存在することを確認（存在しない場合は作成）
func (r *BalanceRepository) ensureUserExists(ctx context.Context, userID string) error {
	query := `
		INSERT INTO users (user_id)
		VALUES (?)
		ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}

	return nil
}
