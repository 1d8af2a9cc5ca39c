package handler

import "time"

// ApproveConversionRequest 変換承認リクエスト
// @Description 変換承認リクエスト
type ApproveConversionRequest struct {
	AdminNote string `json:"admin_note,omitempty" example:"verified"`
}

// ApproveConversionData 変換承認データ
// @Description 変換承認データ
type ApproveConversionData struct {
	ConversionID string    `json:"conversion_id" example:"cnv_7f9c2e10"`
	Status       string    `json:"status" example:"approved"`
	ApprovedBy   string    `json:"approved_by" example:"admin123"`
	ApprovedAt   time.Time `json:"approved_at"`
	AdminNote    string    `json:"admin_note,omitempty"`
}

// RejectConversionRequest 変換却下リクエスト
// @Description 変換却下リクエスト
type RejectConversionRequest struct {
	Reason string `json:"reason" example:"suspicious activity"`
}

// RejectConversionData 変換却下データ
// @Description 変換却下データ
type RejectConversionData struct {
	ConversionID   string `json:"conversion_id" example:"cnv_7f9c2e10"`
	Status         string `json:"status" example:"rejected"`
	RefundedPoints int64  `json:"refunded_points" example:"500"`
	AdminNote      string `json:"admin_note"`
}

// UpdateRateRequest レート更新リクエスト
// @Description レート更新リクエスト
type UpdateRateRequest struct {
	PointsPerCVC  int64      `json:"points_per_cvc" example:"100"`
	MinimumPoints int64      `json:"minimum_points" example:"100"`
	MinimumCVC    string     `json:"minimum_cvc" example:"1"`
	ClaimFeeETH   string     `json:"claim_fee_eth" example:"0.0001"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
}

// RateModel 変換レート
// @Description 変換レート
type RateModel struct {
	RateID        string    `json:"rate_id" example:"rate_5a2b8c31"`
	PointsPerCVC  int64     `json:"points_per_cvc" example:"100"`
	MinimumPoints int64     `json:"minimum_points" example:"100"`
	MinimumCVC    string    `json:"minimum_cvc" example:"1"`
	ClaimFeeETH   string    `json:"claim_fee_eth" example:"0.0001"`
	IsActive      bool      `json:"is_active" example:"true"`
	EffectiveFrom time.Time `json:"effective_from"`
	CreatedBy     string    `json:"created_by" example:"admin123"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdminListConversionsData 変換一覧データ（管理者向け）
// @Description 変換一覧データ（管理者向け）
type AdminListConversionsData struct {
	Conversions []ConversionModel `json:"conversions"`
	Pagination  PaginationModel   `json:"pagination"`
}

// StatsData 全体集計データ
// @Description 全体集計データ
type StatsData struct {
	TotalConversions     int   `json:"total_conversions" example:"42"`
	TotalPointsConverted int64 `json:"total_points_converted" example:"21000"`
	TotalCVCGenerated    int64 `json:"total_cvc_generated" example:"210"`
	TotalClaimed         int64 `json:"total_claimed" example:"150"`
	TotalPending         int   `json:"total_pending" example:"3"`
}

// ListRatesData レート履歴データ
// @Description レート履歴データ
type ListRatesData struct {
	Rates      []RateModel     `json:"rates"`
	Pagination PaginationModel `json:"pagination"`
}

// AdminListHistoryData ユーザーのポイント履歴データ（管理者向け）
// @Description ユーザーのポイント履歴データ（管理者向け）
type AdminListHistoryData struct {
	History    []HistoryEntryModel `json:"history"`
	Pagination PaginationModel     `json:"pagination"`
}
