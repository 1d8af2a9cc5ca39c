package handler

import "time"

// CreateConversionRequest 変換リクエスト作成
// @Description 変換リクエスト作成
type CreateConversionRequest struct {
	PointsToConvert int64 `json:"points_to_convert" example:"500"`
}

// CreateConversionData 変換リクエスト作成データ
// @Description 変換リクエスト作成データ
type CreateConversionData struct {
	ConversionID    string    `json:"conversion_id" example:"cnv_7f9c2e10"`
	PointsConverted int64     `json:"points_converted" example:"500"`
	CVCAmount       int64     `json:"cvc_amount" example:"5"`
	ConversionRate  int64     `json:"conversion_rate" example:"100"`
	ClaimFee        string    `json:"claim_fee" example:"0.0001"`
	Status          string    `json:"status" example:"pending"`
	CreatedAt       time.Time `json:"created_at"`
}

// UserInfoModel ユーザー情報
// @Description ユーザー情報
type UserInfoModel struct {
	UserID      string `json:"user_id" example:"user123"`
	DisplayName string `json:"display_name,omitempty" example:"Alice"`
}

// ConversionModel 変換レコード
// @Description 変換レコード
type ConversionModel struct {
	ConversionID    string         `json:"conversion_id" example:"cnv_7f9c2e10"`
	User            *UserInfoModel `json:"user,omitempty"`
	PointsConverted int64          `json:"points_converted" example:"500"`
	CVCAmount       int64          `json:"cvc_amount" example:"5"`
	ConversionRate  int64          `json:"conversion_rate" example:"100"`
	ClaimFee        string         `json:"claim_fee" example:"0.0001"`
	Status          string         `json:"status" example:"pending" enums:"pending,approved,rejected,claimed"`
	TransactionHash string         `json:"transaction_hash,omitempty"`
	WalletAddress   string         `json:"wallet_address,omitempty"`
	AdminNote       string         `json:"admin_note,omitempty"`
	ApprovedBy      string         `json:"approved_by,omitempty" example:"admin123"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// UserStatsModel ユーザー単位の集計
// @Description ユーザー単位の集計
type UserStatsModel struct {
	TotalPointsConverted int64 `json:"total_points_converted" example:"1500"`
	TotalCVCClaimed      int64 `json:"total_cvc_claimed" example:"10"`
	PendingConversions   int   `json:"pending_conversions" example:"1"`
}

// ListConversionsData 変換一覧データ
// @Description 変換一覧データ
type ListConversionsData struct {
	Conversions []ConversionModel `json:"conversions"`
	Pagination  PaginationModel   `json:"pagination"`
	Stats       UserStatsModel    `json:"stats"`
}

// ClaimRequest CVCクレームリクエスト
// @Description CVCクレームリクエスト
type ClaimRequest struct {
	ConversionID    string `json:"conversion_id" example:"cnv_7f9c2e10"`
	WalletAddress   string `json:"wallet_address" example:"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"`
	TransactionHash string `json:"transaction_hash" example:"0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"`
}

// ClaimData CVCクレームデータ
// @Description CVCクレームデータ
type ClaimData struct {
	ConversionID    string    `json:"conversion_id" example:"cnv_7f9c2e10"`
	CVCAmount       int64     `json:"cvc_amount" example:"5"`
	TransactionHash string    `json:"transaction_hash"`
	WalletAddress   string    `json:"wallet_address"`
	Status          string    `json:"status" example:"claimed"`
	ClaimedAt       time.Time `json:"claimed_at"`
}

// RateData 現在レートデータ
// @Description 現在レートデータ
type RateData struct {
	PointsPerCVC             int64     `json:"points_per_cvc" example:"100"`
	MinimumPoints            int64     `json:"minimum_points" example:"100"`
	MinimumCVC               string    `json:"minimum_cvc" example:"1"`
	ClaimFeeETH              string    `json:"claim_fee_eth" example:"0.0001"`
	IsActive                 bool      `json:"is_active" example:"true"`
	EffectiveFrom            time.Time `json:"effective_from"`
	Network                  string    `json:"network" example:"BSC"`
	CompanyWallet            string    `json:"company_wallet"`
	CVCContractAddress       string    `json:"cvc_contract_address"`
	LiquidityContractAddress string    `json:"liquidity_contract_address"`
}

// ValidateData 変換ドライランデータ
// @Description 変換ドライランデータ
type ValidateData struct {
	Valid          bool   `json:"valid" example:"true"`
	CVCAmount      int64  `json:"cvc_amount,omitempty" example:"5"`
	CurrentBalance int64  `json:"current_balance,omitempty" example:"1000"`
	Message        string `json:"message,omitempty" example:"Minimum 100 points required for conversion"`
}

// BalanceData ポイント残高データ
// @Description ポイント残高データ
type BalanceData struct {
	UserID      string `json:"user_id" example:"user123"`
	TotalPoints int64  `json:"total_points" example:"1000"`
}

// HistoryEntryModel ポイント履歴エントリ
// @Description ポイント履歴エントリ
type HistoryEntryModel struct {
	HistoryID   string    `json:"history_id" example:"hist_3b1f9a77"`
	UserID      string    `json:"user_id" example:"user123"`
	Type        string    `json:"type" example:"conversion_deduction"`
	Points      int64     `json:"points" example:"-500"`
	Description string    `json:"description" example:"Converted 500 points to 5 CVC"`
	RelatedID   string    `json:"related_id,omitempty" example:"cnv_7f9c2e10"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListHistoryData ポイント履歴一覧データ
// @Description ポイント履歴一覧データ
type ListHistoryData struct {
	History    []HistoryEntryModel `json:"history"`
	Pagination PaginationModel     `json:"pagination"`
}
