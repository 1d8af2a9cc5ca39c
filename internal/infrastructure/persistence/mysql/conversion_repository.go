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

	"cvc-server/internal/domain/conversion"
)

// ConversionRepository MySQL実装のConversionRepository
type ConversionRepository struct {
	db     querier
	tracer trace.Tracer
}

// NewConversionRepository 新しいConversionRepositoryを作成
func NewConversionRepository(db *DB) *ConversionRepository {
	return &ConversionRepository{
		db:     db,
		tracer: otel.Tracer("conversion-repository"),
	}
}

// WithTx トランザクションに束縛されたリポジトリを返す
func (r *ConversionRepository) WithTx(tx *sql.Tx) conversion.ConversionRepository {
	return &ConversionRepository{db: tx, tracer: r.tracer}
}

const conversionColumns = `
	c.conversion_id, c.user_id, u.display_name,
	c.points_converted, c.cvc_amount, c.conversion_rate, c.claim_fee,
	c.status, c.transaction_hash, c.wallet_address, c.admin_note,
	c.approved_by, c.approved_at, c.claimed_at, c.created_at, c.updated_at
`

// Save 変換レコードを保存
func (r *ConversionRepository) Save(ctx context.Context, c *conversion.Conversion) error {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.conversion_id", c.ConversionID()),
		attribute.String("db.user_id", c.User().CanonicalID()),
		attribute.Int64("db.points_converted", c.PointsConverted()),
		attribute.Int64("db.cvc_amount", c.CVCAmount()),
		attribute.String("db.status", c.Status().String()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		INSERT INTO conversions (
			conversion_id, user_id, points_converted, cvc_amount, conversion_rate,
			claim_fee, status, transaction_hash, wallet_address, admin_note,
			approved_by, approved_at, claimed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ConversionID(),
		c.User().CanonicalID(),
		c.PointsConverted(),
		c.CVCAmount(),
		c.ConversionRate(),
		c.ClaimFee().String(),
		c.Status().String(),
		nullString(c.TransactionHash()),
		nullString(c.WalletAddress()),
		nullString(c.AdminNote()),
		nullString(c.ApprovedBy()),
		c.ApprovedAt(),
		c.ClaimedAt(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to save conversion: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "conversion saved")
	return nil
}

// Update 変換レコードのステータス遷移を永続化
// 凍結フィールド（ポイント数・CVC量・レート）は更新しない
func (r *ConversionRepository) Update(ctx context.Context, c *conversion.Conversion) error {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.conversion_id", c.ConversionID()),
		attribute.String("db.status", c.Status().String()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		UPDATE conversions
		SET status = ?, transaction_hash = ?, wallet_address = ?, admin_note = ?,
			approved_by = ?, approved_at = ?, claimed_at = ?, updated_at = ?
		WHERE conversion_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		c.Status().String(),
		nullString(c.TransactionHash()),
		nullString(c.WalletAddress()),
		nullString(c.AdminNote()),
		nullString(c.ApprovedBy()),
		c.ApprovedAt(),
		c.ClaimedAt(),
		c.UpdatedAt(),
		c.ConversionID(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to update conversion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "conversion not found")
		return conversion.ErrConversionNotFound
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "conversion updated")
	return nil
}

// FindByConversionID 変換IDで変換レコードを取得
// ユーザー情報はJOINで展開して返す
func (r *ConversionRepository) FindByConversionID(ctx context.Context, conversionID string) (*conversion.Conversion, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.FindByConversionID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.conversion_id", conversionID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		SELECT` + conversionColumns + `
		FROM conversions c
		LEFT JOIN users u ON u.user_id = c.user_id
		WHERE c.conversion_id = ?
	`

	row := r.db.QueryRowContext(ctx, query, conversionID)
	c, err := scanConversion(row)
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "conversion not found")
		return nil, conversion.ErrConversionNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to find conversion: %w", err)
	}

	span.SetAttributes(
		attribute.String("db.user_id", c.User().CanonicalID()),
		attribute.String("db.status", c.Status().String()),
	)
	span.SetStatus(otelcodes.Ok, "conversion found")
	return c, nil
}

// FindByUserID ユーザーIDで変換レコード一覧を取得（作成日時降順、ページネーション対応）
func (r *ConversionRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*conversion.Conversion, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		SELECT` + conversionColumns + `
		FROM conversions c
		LEFT JOIN users u ON u.user_id = c.user_id
		WHERE c.user_id = ?
		ORDER BY c.created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	conversions, err := collectConversions(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.result_count", len(conversions)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d conversions", len(conversions)))
	return conversions, nil
}

// CountByUserID ユーザーの変換レコード総件数を取得
func (r *ConversionRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.CountByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversions WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", count))
	span.SetStatus(otelcodes.Ok, "conversions counted")
	return count, nil
}

// FindAll 変換レコード一覧を取得（statusが空文字または"all"の場合はフィルタなし）
func (r *ConversionRepository) FindAll(ctx context.Context, status string, limit, offset int) ([]*conversion.Conversion, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.FindAll")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.status_filter", status),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		SELECT` + conversionColumns + `
		FROM conversions c
		LEFT JOIN users u ON u.user_id = c.user_id
	`
	args := []interface{}{}
	if status != "" && status != "all" {
		query += ` WHERE c.status = ?`
		args = append(args, status)
	}
	query += `
		ORDER BY c.created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	conversions, err := collectConversions(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.result_count", len(conversions)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d conversions", len(conversions)))
	return conversions, nil
}

// CountAll 変換レコード総件数を取得（statusフィルタ対応）
func (r *ConversionRepository) CountAll(ctx context.Context, status string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.CountAll")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.status_filter", status),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `SELECT COUNT(*) FROM conversions`
	args := []interface{}{}
	if status != "" && status != "all" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", count))
	span.SetStatus(otelcodes.Ok, "conversions counted")
	return count, nil
}

// StatsByUserID ユーザー単位の集計を取得
func (r *ConversionRepository) StatsByUserID(ctx context.Context, userID string) (*conversion.UserStats, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.StatsByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		SELECT
			COALESCE(SUM(points_converted), 0),
			COALESCE(SUM(CASE WHEN status = 'claimed' THEN cvc_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM conversions
		WHERE user_id = ?
	`

	var stats conversion.UserStats
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalPointsConverted,
		&stats.TotalCVCClaimed,
		&stats.PendingConversions,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to aggregate user stats: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "user stats aggregated")
	return &stats, nil
}

// Stats 全体の集計を取得
func (r *ConversionRepository) Stats(ctx context.Context) (*conversion.Stats, error) {
	ctx, span := r.tracer.Start(ctx, "ConversionRepository.Stats")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "conversions"),
	)

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(points_converted), 0),
			COALESCE(SUM(cvc_amount), 0),
			COALESCE(SUM(CASE WHEN status = 'claimed' THEN cvc_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM conversions
	`

	var stats conversion.Stats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalConversions,
		&stats.TotalPointsConverted,
		&stats.TotalCVCGenerated,
		&stats.TotalClaimed,
		&stats.TotalPending,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "stats aggregated")
	return &stats, nil
}

// scanConversion 1行をConversionエンティティに復元する
func scanConversion(row rowScanner) (*conversion.Conversion, error) {
	var conversionID, userID string
	var displayName sql.NullString
	var pointsConverted, cvcAmount, conversionRate int64
	var claimFeeStr string
	var statusStr string
	var transactionHash, walletAddress, adminNote, approvedBy sql.NullString
	var approvedAt, claimedAt sql.NullTime
	var createdAt, updatedAt time.Time

	if err := row.Scan(
		&conversionID,
		&userID,
		&displayName,
		&pointsConverted,
		&cvcAmount,
		&conversionRate,
		&claimFeeStr,
		&statusStr,
		&transactionHash,
		&walletAddress,
		&adminNote,
		&approvedBy,
		&approvedAt,
		&claimedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	claimFee, err := decimal.NewFromString(claimFeeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid claim fee value: %w", err)
	}

	status, err := conversion.NewConversionStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion status: %w", err)
	}

	userRef := conversion.NewUserRef(userID)
	if displayName.Valid {
		userRef = conversion.NewPopulatedUserRef(&conversion.UserSnapshot{
			UserID:      userID,
			DisplayName: displayName.String,
		})
	}

	var approvedAtPtr, claimedAtPtr *time.Time
	if approvedAt.Valid {
		approvedAtPtr = &approvedAt.Time
	}
	if claimedAt.Valid {
		claimedAtPtr = &claimedAt.Time
	}

	return conversion.Reconstruct(
		conversionID,
		userRef,
		pointsConverted,
		cvcAmount,
		conversionRate,
		claimFee,
		status,
		transactionHash.String,
		walletAddress.String,
		adminNote.String,
		approvedBy.String,
		approvedAtPtr,
		claimedAtPtr,
		createdAt,
		updatedAt,
	), nil
}

// collectConversions 複数行をConversionエンティティのスライスに復元する
func collectConversions(rows *sql.Rows) ([]*conversion.Conversion, error) {
	var conversions []*conversion.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		conversions = append(conversions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversions: %w", err)
	}
	return conversions, nil
}

// nullString 空文字列をNULLとして保存するためのヘルパー
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
