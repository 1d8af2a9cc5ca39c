package rate

import (
	"context"
	"database/sql"
)

// ConversionRateRepository 変換レートリポジトリインターフェース
type ConversionRateRepository interface {
	// WithTx トランザクションに束縛されたリポジトリを返す
	WithTx(tx *sql.Tx) ConversionRateRepository

	// FindActive 現在有効なレートを取得（effectiveFrom降順で最新の有効レート）
	FindActive(ctx context.Context) (*ConversionRate, error)

	// Create 新しいレートを保存
	Create(ctx context.Context, rate *ConversionRate) error

	// DeactivateAll すべてのレートを無効化
	DeactivateAll(ctx context.Context) error

	// FindAll レート履歴を取得（作成日時降順、ページネーション対応）
	FindAll(ctx context.Context, limit, offset int) ([]*ConversionRate, error)

	// Count レートの総件数を取得
	Count(ctx context.Context) (int, error)
}
