package conversion

import (
	"time"
)

// CreateConversionRequest 変換リクエスト作成
type CreateConversionRequest struct {
	UserID string
	Points int64
}

// CreateConversionResponse 変換リクエスト作成レスポンス
type CreateConversionResponse struct {
	ConversionID    string
	PointsConverted int64
	CVCAmount       int64
	ConversionRate  int64
	ClaimFee        string
	Status          string
	CreatedAt       time.Time
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

// UserStatsDTO ユーザー単位の集計
type UserStatsDTO struct {
	TotalPointsConverted int64
	TotalCVCClaimed      int64
	PendingConversions   int
}

// ListConversionsRequest ユーザーの変換一覧取得
type ListConversionsRequest struct {
	UserID string
	Page   int
	Limit  int
}

// ListConversionsResponse ユーザーの変換一覧レスポンス
type ListConversionsResponse struct {
	Conversions []ConversionDTO
	Pagination  Pagination
	Stats       UserStatsDTO
}

// ClaimRequest CVCクレームリクエスト
type ClaimRequest struct {
	UserID          string
	ConversionID    string
	WalletAddress   string
	TransactionHash string
}

// ClaimResponse CVCクレームレスポンス
type ClaimResponse struct {
	ConversionID    string
	CVCAmount       int64
	TransactionHash string
	WalletAddress   string
	Status          string
	ClaimedAt       time.Time
}

// RateResponse 現在レートのレスポンス
type RateResponse struct {
	PointsPerCVC             int64
	MinimumPoints            int64
	MinimumCVC               string
	ClaimFeeETH              string
	IsActive                 bool
	EffectiveFrom            time.Time
	Network                  string
	CompanyWallet            string
	CVCContractAddress       string
	LiquidityContractAddress string
}

// ValidateRequest 変換ドライランリクエスト
type ValidateRequest struct {
	UserID string
	Points int64
}

// ValidateResponse 変換ドライランレスポンス
// Validがfalseの場合、Messageに理由を格納する
type ValidateResponse struct {
	Valid          bool
	CVCAmount      int64
	CurrentBalance int64
	Message        string
}

// GetBalanceResponse ポイント残高レスポンス
type GetBalanceResponse struct {
	UserID      string
	TotalPoints int64
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

// ListHistoryRequest ポイント履歴一覧取得
type ListHistoryRequest struct {
	UserID string
	Page   int
	Limit  int
}

// ListHistoryResponse ポイント履歴一覧レスポンス
type ListHistoryResponse struct {
	History    []HistoryEntryDTO
	Pagination Pagination
}
