package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	adminapp "cvc-server/internal/application/admin"
)

// AdminHandler 管理者向けハンドラー
type AdminHandler struct {
	adminService *adminapp.AdminApplicationService
}

// NewAdminHandler 新しいAdminHandlerを作成
func NewAdminHandler(adminService *adminapp.AdminApplicationService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListConversions 変換一覧取得ハンドラー（管理API用）
// @Summary 変換一覧を取得（管理API）
// @Description 全ユーザーの変換リクエスト一覧を取得します
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param status query string false "ステータスフィルタ（空または all で全件）" enums:"pending,approved,rejected,claimed,all"
// @Param page query int false "ページ番号" default(1)
// @Param limit query int false "取得件数" default(20)
// @Success 200 {object} SuccessResponse "変換一覧取得成功"
// @Failure 400 {object} ErrorResponse "不正なステータス"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/conversions [get]
func (h *AdminHandler) ListConversions(c echo.Context) error {
	page, limit := pageParams(c)

	resp, err := h.adminService.ListConversions(c.Request().Context(), &adminapp.ListConversionsRequest{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	conversions := make([]ConversionModel, 0, len(resp.Conversions))
	for _, dto := range resp.Conversions {
		conversions = append(conversions, toAdminConversionModel(dto))
	}

	return successJSON(c, AdminListConversionsData{
		Conversions: conversions,
		Pagination:  toAdminPaginationModel(resp.Pagination),
	})
}

// GetStats 全体集計取得ハンドラー（管理API用）
// @Summary 変換の全体集計を取得（管理API）
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} SuccessResponse "集計取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/conversions/stats [get]
func (h *AdminHandler) GetStats(c echo.Context) error {
	resp, err := h.adminService.Stats(c.Request().Context())
	if err != nil {
		return err
	}

	return successJSON(c, StatsData{
		TotalConversions:     resp.TotalConversions,
		TotalPointsConverted: resp.TotalPointsConverted,
		TotalCVCGenerated:    resp.TotalCVCGenerated,
		TotalClaimed:         resp.TotalClaimed,
		TotalPending:         resp.TotalPending,
	})
}

// GetConversion 変換レコード取得ハンドラー（管理API用）
// @Summary 変換レコードを取得（管理API）
// @Tags admin
// @Produce json
// @Param conversion_id path string true "変換ID"
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} SuccessResponse "変換取得成功"
// @Failure 404 {object} ErrorResponse "変換が存在しない"
// @Router /admin/conversions/{conversion_id} [get]
func (h *AdminHandler) GetConversion(c echo.Context) error {
	conversionID := c.Param("conversion_id")
	if conversionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversion_id is required")
	}

	resp, err := h.adminService.GetConversion(c.Request().Context(), conversionID)
	if err != nil {
		return err
	}

	return successJSON(c, toAdminConversionModel(*resp))
}

// ApproveConversion 変換承認ハンドラー（管理API用）
// @Summary 変換を承認（管理API）
// @Description 承認待ちの変換を承認します。ポイントは作成時に減算済みです
// @Tags admin
// @Accept json
// @Produce json
// @Param conversion_id path string true "変換ID"
// @Param X-API-Key header string true "APIキー"
// @Param X-Admin-ID header string true "管理者ID"
// @Param request body ApproveConversionRequest false "承認リクエスト"
// @Success 200 {object} SuccessResponse "承認成功"
// @Failure 400 {object} ErrorResponse "pending以外の変換"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 404 {object} ErrorResponse "変換が存在しない"
// @Router /admin/conversions/{conversion_id}/approve [post]
func (h *AdminHandler) ApproveConversion(c echo.Context) error {
	conversionID := c.Param("conversion_id")
	if conversionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversion_id is required")
	}

	adminID, ok := c.Get("admin_id").(string)
	if !ok || adminID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "admin_id not found")
	}

	var reqBody ApproveConversionRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.adminService.Approve(c.Request().Context(), &adminapp.ApproveRequest{
		ConversionID: conversionID,
		AdminID:      adminID,
		AdminNote:    reqBody.AdminNote,
	})
	if err != nil {
		return err
	}

	return successJSONWithMessage(c, ApproveConversionData{
		ConversionID: resp.ConversionID,
		Status:       resp.Status,
		ApprovedBy:   resp.ApprovedBy,
		ApprovedAt:   resp.ApprovedAt,
		AdminNote:    resp.AdminNote,
	}, "Conversion approved")
}

// RejectConversion 変換却下ハンドラー（管理API用）
// @Summary 変換を却下（管理API）
// @Description 承認待ちの変換を却下し、減算済みポイントを返金します
// @Tags admin
// @Accept json
// @Produce json
// @Param conversion_id path string true "変換ID"
// @Param X-API-Key header string true "APIキー"
// @Param X-Admin-ID header string true "管理者ID"
// @Param request body RejectConversionRequest true "却下リクエスト"
// @Success 200 {object} SuccessResponse "却下成功"
// @Failure 400 {object} ErrorResponse "理由なし・pending以外の変換"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 404 {object} ErrorResponse "変換が存在しない"
// @Router /admin/conversions/{conversion_id}/reject [post]
func (h *AdminHandler) RejectConversion(c echo.Context) error {
	conversionID := c.Param("conversion_id")
	if conversionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversion_id is required")
	}

	adminID, ok := c.Get("admin_id").(string)
	if !ok || adminID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "admin_id not found")
	}

	var reqBody RejectConversionRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.adminService.Reject(c.Request().Context(), &adminapp.RejectRequest{
		ConversionID: conversionID,
		AdminID:      adminID,
		Reason:       reqBody.Reason,
	})
	if err != nil {
		return err
	}

	return successJSONWithMessage(c, RejectConversionData{
		ConversionID:   resp.ConversionID,
		Status:         resp.Status,
		RefundedPoints: resp.RefundedPoints,
		AdminNote:      resp.AdminNote,
	}, "Conversion rejected and points refunded")
}

// ListRates レート履歴取得ハンドラー（管理API用）
// @Summary レート履歴を取得（管理API）
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param page query int false "ページ番号" default(1)
// @Param limit query int false "取得件数" default(20)
// @Success 200 {object} SuccessResponse "レート履歴取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/rates [get]
func (h *AdminHandler) ListRates(c echo.Context) error {
	page, limit := pageParams(c)

	resp, err := h.adminService.ListRates(c.Request().Context(), &adminapp.ListRatesRequest{
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return err
	}

	rates := make([]RateModel, 0, len(resp.Rates))
	for _, dto := range resp.Rates {
		rates = append(rates, toRateModel(dto))
	}

	return successJSON(c, ListRatesData{
		Rates:      rates,
		Pagination: toAdminPaginationModel(resp.Pagination),
	})
}

// GetCurrentRate 現在レート取得ハンドラー（管理API用）
// @Summary 現在の有効レートを取得（管理API）
// @Tags admin
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} SuccessResponse "レート取得成功"
// @Failure 404 {object} ErrorResponse "有効なレートが存在しない"
// @Router /admin/rates/current [get]
func (h *AdminHandler) GetCurrentRate(c echo.Context) error {
	resp, err := h.adminService.CurrentRate(c.Request().Context())
	if err != nil {
		return err
	}

	return successJSON(c, toRateModel(*resp))
}

// UpdateRate レート更新ハンドラー（管理API用）
// @Summary 変換レートを更新（管理API）
// @Description 既存レートをすべて無効化し、新しい有効レートを作成します
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param X-Admin-ID header string true "管理者ID"
// @Param request body UpdateRateRequest true "レート更新リクエスト"
// @Success 200 {object} SuccessResponse "レート更新成功"
// @Failure 400 {object} ErrorResponse "不正なレート値"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/rates [post]
func (h *AdminHandler) UpdateRate(c echo.Context) error {
	adminID, ok := c.Get("admin_id").(string)
	if !ok || adminID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "admin_id not found")
	}

	var reqBody UpdateRateRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	minimumCVC, err := decimal.NewFromString(reqBody.MinimumCVC)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid minimum_cvc format")
	}
	claimFeeETH, err := decimal.NewFromString(reqBody.ClaimFeeETH)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim_fee_eth format")
	}

	resp, err := h.adminService.UpdateRate(c.Request().Context(), &adminapp.UpdateRateRequest{
		AdminID:       adminID,
		PointsPerCVC:  reqBody.PointsPerCVC,
		MinimumPoints: reqBody.MinimumPoints,
		MinimumCVC:    minimumCVC,
		ClaimFeeETH:   claimFeeETH,
		EffectiveFrom: reqBody.EffectiveFrom,
	})
	if err != nil {
		return err
	}

	return successJSONWithMessage(c, toRateModel(*resp), "Conversion rate updated")
}

// GetUserHistory ユーザーのポイント履歴取得ハンドラー（管理API用）
// @Summary 指定ユーザーのポイント履歴を取得（管理API）
// @Tags admin
// @Produce json
// @Param user_id path string true "ユーザーID"
// @Param X-API-Key header string true "APIキー"
// @Param page query int false "ページ番号" default(1)
// @Param limit query int false "取得件数" default(20)
// @Success 200 {object} SuccessResponse "履歴取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/history [get]
func (h *AdminHandler) GetUserHistory(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	page, limit := pageParams(c)

	resp, err := h.adminService.ListUserHistory(c.Request().Context(), &adminapp.ListUserHistoryRequest{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	entries := make([]HistoryEntryModel, 0, len(resp.History))
	for _, dto := range resp.History {
		entries = append(entries, HistoryEntryModel{
			HistoryID:   dto.HistoryID,
			UserID:      dto.UserID,
			Type:        dto.Type,
			Points:      dto.Points,
			Description: dto.Description,
			RelatedID:   dto.RelatedID,
			CreatedAt:   dto.CreatedAt,
		})
	}

	return successJSON(c, AdminListHistoryData{
		History:    entries,
		Pagination: toAdminPaginationModel(resp.Pagination),
	})
}

func toAdminConversionModel(dto adminapp.ConversionDTO) ConversionModel {
	m := ConversionModel{
		ConversionID:    dto.ConversionID,
		PointsConverted: dto.PointsConverted,
		CVCAmount:       dto.CVCAmount,
		ConversionRate:  dto.ConversionRate,
		ClaimFee:        dto.ClaimFee,
		Status:          dto.Status,
		TransactionHash: dto.TransactionHash,
		WalletAddress:   dto.WalletAddress,
		AdminNote:       dto.AdminNote,
		ApprovedBy:      dto.ApprovedBy,
		ApprovedAt:      dto.ApprovedAt,
		ClaimedAt:       dto.ClaimedAt,
		CreatedAt:       dto.CreatedAt,
		UpdatedAt:       dto.UpdatedAt,
	}
	if dto.User != nil {
		m.User = &UserInfoModel{
			UserID:      dto.User.UserID,
			DisplayName: dto.User.DisplayName,
		}
	}
	return m
}

func toRateModel(dto adminapp.RateDTO) RateModel {
	return RateModel{
		RateID:        dto.RateID,
		PointsPerCVC:  dto.PointsPerCVC,
		MinimumPoints: dto.MinimumPoints,
		MinimumCVC:    dto.MinimumCVC,
		ClaimFeeETH:   dto.ClaimFeeETH,
		IsActive:      dto.IsActive,
		EffectiveFrom: dto.EffectiveFrom,
		CreatedBy:     dto.CreatedBy,
		CreatedAt:     dto.CreatedAt,
	}
}

func toAdminPaginationModel(p adminapp.Pagination) PaginationModel {
	return PaginationModel{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}
