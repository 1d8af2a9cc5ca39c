package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	conversionapp "cvc-server/internal/application/conversion"
)

// ConversionHandler 変換関連ハンドラー
type ConversionHandler struct {
	conversionService *conversionapp.ConversionApplicationService
}

// NewConversionHandler 新しいConversionHandlerを作成
func NewConversionHandler(conversionService *conversionapp.ConversionApplicationService) *ConversionHandler {
	return &ConversionHandler{
		conversionService: conversionService,
	}
}

// CreateConversion 変換リクエスト作成ハンドラー
// @Summary ポイントをCVCに変換
// @Description ポイントを減算し、承認待ちの変換リクエストを作成します
// @Tags conversion
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateConversionRequest true "変換リクエスト"
// @Success 200 {object} SuccessResponse "変換リクエスト作成成功"
// @Failure 400 {object} ErrorResponse "バリデーションエラー"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /conversions [post]
func (h *ConversionHandler) CreateConversion(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody CreateConversionRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if reqBody.PointsToConvert <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "points_to_convert must be positive")
	}

	resp, err := h.conversionService.Create(c.Request().Context(), &conversionapp.CreateConversionRequest{
		UserID: userID,
		Points: reqBody.PointsToConvert,
	})
	if err != nil {
		return err
	}

	return successJSONWithMessage(c, CreateConversionData{
		ConversionID:    resp.ConversionID,
		PointsConverted: resp.PointsConverted,
		CVCAmount:       resp.CVCAmount,
		ConversionRate:  resp.ConversionRate,
		ClaimFee:        resp.ClaimFee,
		Status:          resp.Status,
		CreatedAt:       resp.CreatedAt,
	}, "Conversion request created")
}

// ListMyConversions 自分の変換一覧取得ハンドラー
// @Summary 自分の変換一覧を取得
// @Description 自分の変換リクエスト一覧と集計を取得します
// @Tags conversion
// @Produce json
// @Security Bearer
// @Param page query int false "ページ番号" default(1)
// @Param limit query int false "取得件数" default(20)
// @Success 200 {object} SuccessResponse "変換一覧取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/conversions [get]
func (h *ConversionHandler) ListMyConversions(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	page, limit := pageParams(c)

	resp, err := h.conversionService.List(c.Request().Context(), &conversionapp.ListConversionsRequest{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	conversions := make([]ConversionModel, 0, len(resp.Conversions))
	for _, dto := range resp.Conversions {
		conversions = append(conversions, toConversionModel(dto))
	}

	return successJSON(c, ListConversionsData{
		Conversions: conversions,
		Pagination:  toPaginationModel(resp.Pagination),
		Stats: UserStatsModel{
			TotalPointsConverted: resp.Stats.TotalPointsConverted,
			TotalCVCClaimed:      resp.Stats.TotalCVCClaimed,
			PendingConversions:   resp.Stats.PendingConversions,
		},
	})
}

// ClaimCVC CVCクレームハンドラー
// @Summary 承認済みCVCをクレーム
// @Description 承認済みの変換をウォレットへのクレーム済みとして記録します
// @Tags conversion
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ClaimRequest true "クレームリクエスト"
// @Success 200 {object} SuccessResponse "クレーム成功"
// @Failure 400 {object} ErrorResponse "バリデーションエラー"
// @Failure 401 {object} ErrorResponse "認証・所有権エラー"
// @Failure 404 {object} ErrorResponse "変換が存在しない"
// @Router /conversions/claim [post]
func (h *ConversionHandler) ClaimCVC(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody ClaimRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if reqBody.ConversionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversion_id is required")
	}

	resp, err := h.conversionService.Claim(c.Request().Context(), &conversionapp.ClaimRequest{
		UserID:          userID,
		ConversionID:    reqBody.ConversionID,
		WalletAddress:   reqBody.WalletAddress,
		TransactionHash: reqBody.TransactionHash,
	})
	if err != nil {
		return err
	}

	return successJSONWithMessage(c, ClaimData{
		ConversionID:    resp.ConversionID,
		CVCAmount:       resp.CVCAmount,
		TransactionHash: resp.TransactionHash,
		WalletAddress:   resp.WalletAddress,
		Status:          resp.Status,
		ClaimedAt:       resp.ClaimedAt,
	}, "CVC claimed")
}

// GetRate 現在レート取得ハンドラー
// @Summary 現在の変換レートを取得
// @Description 有効な変換レートとチェーン情報を取得します
// @Tags conversion
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse "レート取得成功"
// @Failure 404 {object} ErrorResponse "有効なレートが存在しない"
// @Router /conversions/rate [get]
func (h *ConversionHandler) GetRate(c echo.Context) error {
	resp, err := h.conversionService.GetCurrentRate(c.Request().Context())
	if err != nil {
		return err
	}

	return successJSON(c, RateData{
		PointsPerCVC:             resp.PointsPerCVC,
		MinimumPoints:            resp.MinimumPoints,
		MinimumCVC:               resp.MinimumCVC,
		ClaimFeeETH:              resp.ClaimFeeETH,
		IsActive:                 resp.IsActive,
		EffectiveFrom:            resp.EffectiveFrom,
		Network:                  resp.Network,
		CompanyWallet:            resp.CompanyWallet,
		CVCContractAddress:       resp.CVCContractAddress,
		LiquidityContractAddress: resp.LiquidityContractAddress,
	})
}

// ValidateConversion 変換ドライランハンドラー
// @Summary 変換可否を事前チェック
// @Description 残高もレコードも変更せずに変換可否を検証します
// @Tags conversion
// @Produce json
// @Security Bearer
// @Param points_to_convert query int true "変換するポイント数"
// @Success 200 {object} SuccessResponse "ドライラン成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /conversions/validate [get]
func (h *ConversionHandler) ValidateConversion(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	pointsParam := c.QueryParam("points_to_convert")
	points, err := strconv.ParseInt(pointsParam, 10, 64)
	if err != nil || points <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "points_to_convert must be a positive integer")
	}

	resp, err := h.conversionService.Validate(c.Request().Context(), &conversionapp.ValidateRequest{
		UserID: userID,
		Points: points,
	})
	if err != nil {
		return err
	}

	return successJSON(c, ValidateData{
		Valid:          resp.Valid,
		CVCAmount:      resp.CVCAmount,
		CurrentBalance: resp.CurrentBalance,
		Message:        resp.Message,
	})
}

// GetMyPoints ポイント残高取得ハンドラー
// @Summary 自分のポイント残高を取得
// @Tags points
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse "残高取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 404 {object} ErrorResponse "残高が存在しない"
// @Router /me/points [get]
func (h *ConversionHandler) GetMyPoints(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	resp, err := h.conversionService.GetBalance(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return successJSON(c, BalanceData{
		UserID:      resp.UserID,
		TotalPoints: resp.TotalPoints,
	})
}

// GetMyHistory ポイント履歴取得ハンドラー
// @Summary 自分のポイント履歴を取得
// @Tags points
// @Produce json
// @Security Bearer
// @Param page query int false "ページ番号" default(1)
// @Param limit query int false "取得件数" default(20)
// @Success 200 {object} SuccessResponse "履歴取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/history [get]
func (h *ConversionHandler) GetMyHistory(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	page, limit := pageParams(c)

	resp, err := h.conversionService.ListHistory(c.Request().Context(), &conversionapp.ListHistoryRequest{
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

	return successJSON(c, ListHistoryData{
		History:    entries,
		Pagination: toPaginationModel(resp.Pagination),
	})
}

// pageParams クエリからページネーションパラメータを取得
// 不正値はアプリケーション層の既定値に任せる
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

func toConversionModel(dto conversionapp.ConversionDTO) ConversionModel {
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

func toPaginationModel(p conversionapp.Pagination) PaginationModel {
	return PaginationModel{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}
