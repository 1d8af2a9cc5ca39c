package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApproveRequest 変換承認リクエスト
type ApproveRequest struct {
	ConversionID string
	AdminID      string
	AdminNote    string
}

// ApproveResponse 変換承認レスポンス
type ApproveResponse struct {
	ConversionID string
	Status       string
	ApprovedBy   string
	ApprovedAt   time.Time
	AdminNote    string
}

// RejectRequest 変換却下リクエスト
type RejectRequest struct {
	ConversionID string
	AdminID      string
	Reason       string
}

// RejectResponse 変換却下レスポンス
// RefundedPointsは残高に戻したポイント数
type RejectResponse struct {
	ConversionID   string
	Status         string
	RefundedPoints int64
	AdminNote      string
}

// UpdateRateRequest レート更新リクエスト
// 既存レートをすべて無効化し、新しい有効レートを作成する
type UpdateRateRequest struct {
	AdminID       string
	PointsPerCVC  int64
	MinimumPoints int64
	MinimumCVC    decimal.Decimal
	ClaimFeeETH   decimal.Decimal
	EffectiveFrom *time.Time
}

// RateDTO レートのレスポンス表現
type RateDTO struct {
	RateID        string
	PointsPerCVC  int64
	MinimumPoints int64
	MinimumCVC    string
	ClaimFeeETH   string
	IsActive      bool
	EffectiveFrom time.Time
	CreatedBy     string
	CreatedAt     time.Time
}

// UserInfo レスポンスに含めるユーザー情報
type UserInfo struct {
	UserID      string
	DisplayName string
}

// ConversionDTO 変換レコードのレスポンス表現
type ConversionDTO struct {
	ConversionID    string
	User            *UserInfo
	PointsConverted int64
	CVCAmount       int64
	ConversionRate  int64
	ClaimFee        string
	Status          string
	TransactionHash string
	WalletAddress   string
	AdminNote       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	ClaimedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Pagination ページネーション情報
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ListConversionsRequest 変換一覧取得（管理者向け）
// Statusが空文字または"all"の場合はフィルタなし
type ListConversionsRequest struct {
	Status string
	Page   int
	Limit  int
}

// ListConversionsResponse 変換一覧レスポンス（管理者向け）
type ListConversionsResponse struct {
	Conversions []ConversionDTO
	Pagination  Pagination
}

// StatsResponse 全体集計レスポンス
type StatsResponse struct {
	TotalConversions     int
	TotalPointsConverted int64
	TotalCVCGenerated    int64
	TotalClaimed         int64
	TotalPending         int
}

// ListRatesRequest レート履歴取得
type ListRatesRequest struct {
	Page  int
	Limit int
}

// ListRatesResponse レート履歴レスポンス
type ListRatesResponse struct {
	Rates      []RateDTO
	Pagination Pagination
}

// HistoryEntryDTO ポイント履歴のレスポンス表現
type HistoryEntryDTO struct {
	HistoryID   string
	UserID      string
	Type        string
	Points      int64
	Description string
	RelatedID   string
	CreatedAt   time.Time
}

// ListUserHistoryRequest ユーザーのポイント履歴取得（管理者向け）
type ListUserHistoryRequest struct {
	UserID string
	Page   int
	Limit  int
}

// ListUserHistoryResponse ユーザーのポイント履歴レスポンス（管理者向け）
type ListUserHistoryResponse struct {
	History    []HistoryEntryDTO
	Pagination Pagination
}
