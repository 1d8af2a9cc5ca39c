package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvc-server/internal/domain/points"
)

// HistoryRepository MySQL実装のHistoryRepository
type HistoryRepository struct {
	db     querier
	tracer trace.Tracer
}

// NewHistoryRepository 新しいHistoryRepositoryを作成
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		tracer: otel.Tracer("history-repository"),
	}
}

// WithTx トランザクションに束縛されたリポジトリを返す
func (r *HistoryRepository) WithTx(tx *sql.Tx) points.HistoryRepository {
	return &HistoryRepository{db: tx, tracer: r.tracer}
}

// Append 履歴エントリを追記
// 履歴テーブルは追記のみ。UPDATE/DELETEは発行しない
func (r *HistoryRepository) Append(ctx context.Context, entry *points.HistoryEntry) error {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.Append")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.history_id", entry.HistoryID()),
		attribute.String("db.user_id", entry.UserID()),
		attribute.String("db.history_type", entry.EntryType().String()),
		attribute.Int64("db.points", entry.Points()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "point_history"),
	)

	query := `
		INSERT INTO point_history (
			history_id, user_id, history_type, points, description, related_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.HistoryID(),
		entry.UserID(),
		entry.EntryType().String(),
		entry.Points(),
		entry.Description(),
		nullString(entry.RelatedID()),
		entry.CreatedAt(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to append history: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "history appended")
	return nil
}

// FindByUserID ユーザーIDで履歴一覧を取得（作成日時降順、ページネーション対応）
func (r *HistoryRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*points.HistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "point_history"),
	)

	query := `
		SELECT history_id, user_id, history_type, points, description, related_id, created_at
		FROM point_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*points.HistoryEntry
	for rows.Next() {
		var historyID, dbUserID, historyTypeStr string
		var pointsDelta int64
		var description string
		var relatedID sql.NullString
		var createdAt time.Time

		if err := rows.Scan(
			&historyID,
			&dbUserID,
			&historyTypeStr,
			&pointsDelta,
			&description,
			&relatedID,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		historyType, err := points.NewHistoryType(historyTypeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid history type: %w", err)
		}

		entries = append(entries, points.Reconstruct(
			historyID,
			dbUserID,
			historyType,
			pointsDelta,
			description,
			relatedID.String,
			createdAt,
		))
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", len(entries)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d history entries", len(entries)))
	return entries, nil
}

// CountByUserID ユーザーの履歴総件数を取得
func (r *HistoryRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.CountByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "point_history"),
	)

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM point_history WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count history: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", count))
	span.SetStatus(otelcodes.Ok, "history counted")
	return count, nil
}

// SumByUserID ユーザーの増減合計を取得
// 履歴の増減合計と残高の一致を監査するために使う
func (r *HistoryRepository) SumByUserID(ctx context.Context, userID string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.SumByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "point_history"),
	)

	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM point_history WHERE user_id = ?`, userID,
	).Scan(&sum)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to sum history: %w", err)
	}

	span.SetAttributes(attribute.Int64("db.sum", sum))
	span.SetStatus(otelcodes.Ok, "history summed")
	return sum, nil
}

// ListUserIDs 履歴を持つユーザーID一覧を取得
func (r *HistoryRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.ListUserIDs")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "point_history"),
	)

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM point_history`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", len(userIDs)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d users", len(userIDs)))
	return userIDs, nil
}
