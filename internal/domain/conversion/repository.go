package conversion

import (
	"context"
	"database/sql"
)

// UserStats ユーザー単位の集計
type UserStats struct {
	TotalPointsConverted int64
	TotalCVCClaimed      int64
	PendingConversions   int
}

// Stats 全体の集計
type Stats struct {
	TotalConversions     int
	TotalPointsConverted int64
	TotalCVCGenerated    int64
	TotalClaimed         int64 // claimedステータスのcvcAmount合計
	TotalPending         int
}

// ConversionRepository 変換台帳リポジトリインターフェース
type ConversionRepository interface {
	// WithTx トランザクションに束縛されたリポジトリを返す
	WithTx(tx *sql.Tx) ConversionRepository

	// Save 変換レコードを保存
	Save(ctx context.Context, conversion *Conversion) error

	// Update 変換レコードのステータス遷移を永続化
	Update(ctx context.Context, conversion *Conversion) error

	// FindByConversionID 変換IDで変換レコードを取得
	FindByConversionID(ctx context.Context, conversionID string) (*Conversion, error)

	// FindByUserID ユーザーIDで変換レコード一覧を取得（作成日時降順、ページネーション対応）
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*Conversion, error)

	// CountByUserID ユーザーの変換レコード総件数を取得
	CountByUserID(ctx context.Context, userID string) (int, error)

	// FindAll 変換レコード一覧を取得（statusが空文字または"all"の場合はフィルタなし）
	FindAll(ctx context.Context, status string, limit, offset int) ([]*Conversion, error)

	// CountAll 変換レコード総件数を取得（statusフィルタ対応）
	CountAll(ctx context.Context, status string) (int, error)

	// StatsByUserID ユーザー単位の集計を取得
	StatsByUserID(ctx context.Context, userID string) (*UserStats, error)

	// Stats 全体の集計を取得
	Stats(ctx context.Context) (*Stats, error)
}
