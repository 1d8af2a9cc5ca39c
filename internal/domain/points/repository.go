package points

import (
	"context"
	"database/sql"
)

// BalanceRepository ポイント残高リポジトリインターフェース
// 残高ストレージは外部コラボレーターのため、操作はこのインターフェースの範囲に限る
type BalanceRepository interface {
	// WithTx トランザクションに束縛されたリポジトリを返す
	WithTx(tx *sql.Tx) BalanceRepository

	// FindByUserID ユーザーIDで残高を取得
	FindByUserID(ctx context.Context, userID string) (*Balance, error)

	// Save 残高を保存（更新、楽観的ロック対応）
	Save(ctx context.Context, balance *Balance) error

	// Create 新しい残高レコードを作成
	Create(ctx context.Context, balance *Balance) error
}

// HistoryRepository ポイント履歴リポジトリインターフェース
type HistoryRepository interface {
	// WithTx トランザクションに束縛されたリポジトリを返す
	WithTx(tx *sql.Tx) HistoryRepository

	// Append 履歴エントリを追記（追記のみ、更新・削除はしない）
	Append(ctx context.Context, entry *HistoryEntry) error

	// FindByUserID ユーザーIDで履歴一覧を取得（作成日時降順、ページネーション対応）
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*HistoryEntry, error)

	// CountByUserID ユーザーの履歴総件数を取得
	CountByUserID(ctx context.Context, userID string) (int, error)

	// SumByUserID ユーザーの増減合計を取得（保存量監査用）
	SumByUserID(ctx context.Context, userID string) (int64, error)

	// ListUserIDs 履歴を持つユーザーID一覧を取得（保存量監査用）
	ListUserIDs(ctx context.Context) ([]string, error)
}
