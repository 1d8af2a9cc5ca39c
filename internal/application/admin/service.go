package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvc-server/internal/domain/conversion"
	"cvc-server/internal/domain/points"
	"cvc-server/internal/domain/rate"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ErrEmptyReason 却下理由が空のエラー
var ErrEmptyReason = errors.New("rejection reason is required")

// AdminApplicationService 管理者向けアプリケーションサービス
type AdminApplicationService struct {
	conversionRepo conversion.ConversionRepository
	rateRepo       rate.ConversionRateRepository
	balanceRepo    points.BalanceRepository
	historyRepo    points.HistoryRepository
	txManager      conversion.TransactionManager
	logger         *otelinfra.Logger
	metrics        *otelinfra.Metrics
	tracer         trace.Tracer
	maxRetries     int
}

// NewAdminApplicationService 新しいAdminApplicationServiceを作成
func NewAdminApplicationService(
	conversionRepo conversion.ConversionRepository,
	rateRepo rate.ConversionRateRepository,
	balanceRepo points.BalanceRepository,
	historyRepo points.HistoryRepository,
	txManager conversion.TransactionManager,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *AdminApplicationService {
	return &AdminApplicationService{
		conversionRepo: conversionRepo,
		rateRepo:       rateRepo,
		balanceRepo:    balanceRepo,
		historyRepo:    historyRepo,
		txManager:      txManager,
		logger:         logger,
		metrics:        metrics,
		tracer:         otel.Tracer("admin-service"),
		maxRetries:     3,
	}
}

// Approve 変換を承認する
// ポイントは作成時に減算済みのため残高は変化しない
func (s *AdminApplicationService) Approve(ctx context.Context, req *ApproveRequest) (*ApproveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.Approve")
	defer span.End()

	span.SetAttributes(
		attribute.String("conversion_id", req.ConversionID),
		attribute.String("admin_id", req.AdminID),
	)

	s.logger.Info(ctx, "Approving conversion", map[string]interface{}{
		"conversion_id": req.ConversionID,
		"admin_id":      req.AdminID,
	})

	c, err := s.conversionRepo.FindByConversionID(ctx, req.ConversionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := c.Approve(req.AdminID, req.AdminNote); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := s.conversionRepo.Update(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.RecordError(ctx, "conversion_approve_failed")
		return nil, err
	}

	s.metrics.RecordConversion(ctx, "approved")

	s.logger.Info(ctx, "Conversion approved", map[string]interface{}{
		"conversion_id": req.ConversionID,
		"admin_id":      req.AdminID,
	})

	return &ApproveResponse{
		ConversionID: c.ConversionID(),
		Status:       c.Status().String(),
		ApprovedBy:   c.ApprovedBy(),
		ApprovedAt:   *c.ApprovedAt(),
		AdminNote:    c.AdminNote(),
	}, nil
}

// Reject 変換を却下し、減算済みポイントを返金する
// 返金先の残高レコードが存在しない場合は何も書き込まずに失敗させる
func (s *AdminApplicationService) Reject(ctx context.Context, req *RejectRequest) (*RejectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.Reject")
	defer span.End()

	span.SetAttributes(
		attribute.String("conversion_id", req.ConversionID),
		attribute.String("admin_id", req.AdminID),
	)

	if req.Reason == "" {
		return nil, ErrEmptyReason
	}

	s.logger.Info(ctx, "Rejecting conversion", map[string]interface{}{
		"conversion_id": req.ConversionID,
		"admin_id":      req.AdminID,
	})

	var result *RejectResponse
	err := s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		// 返金・履歴・ステータス遷移はすべてtx束縛リポジトリを経由させる
		conversionRepo := s.conversionRepo.WithTx(tx)
		balanceRepo := s.balanceRepo.WithTx(tx)
		historyRepo := s.historyRepo.WithTx(tx)

		c, err := conversionRepo.FindByConversionID(ctx, req.ConversionID)
		if err != nil {
			return err
		}

		// 状態遷移チェックを先に行い、pending以外は残高に触れない
		if err := c.Reject(req.AdminID, req.Reason); err != nil {
			return err
		}

		userID := c.User().CanonicalID()

		// 楽観的ロックのリトライロジック（返金）
		var retryErr error
		for attempt := 0; attempt < s.maxRetries; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 10 * time.Millisecond
				time.Sleep(backoff)
			}

			balance, err := balanceRepo.FindByUserID(ctx, userID)
			if err != nil {
				return fmt.Errorf("refund target balance not found: %w", err)
			}
			if err := balance.Credit(c.PointsConverted()); err != nil {
				return err
			}

			if err := balanceRepo.Save(ctx, balance); err != nil {
				if attempt < s.maxRetries-1 {
					retryErr = err
					continue
				}
				return fmt.Errorf("failed to save balance after retries: %w", err)
			}

			s.metrics.RecordPointsBalance(ctx, userID, balance.TotalPoints())
			retryErr = nil
			break
		}
		if retryErr != nil {
			return retryErr
		}

		entry, err := points.NewHistoryEntry(
			fmt.Sprintf("hist_%s", uuid.NewString()),
			userID,
			points.HistoryTypeConversionRefund,
			c.PointsConverted(),
			fmt.Sprintf("Refund: %s", req.Reason),
			c.ConversionID(),
		)
		if err != nil {
			return err
		}
		if err := historyRepo.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		if err := conversionRepo.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to update conversion: %w", err)
		}

		s.metrics.RecordConversion(ctx, "rejected")

		result = &RejectResponse{
			ConversionID:   c.ConversionID(),
			Status:         c.Status().String(),
			RefundedPoints: c.PointsConverted(),
			AdminNote:      c.AdminNote(),
		}

		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to reject conversion", err, map[string]interface{}{
			"conversion_id": req.ConversionID,
			"admin_id":      req.AdminID,
		})
		s.metrics.RecordError(ctx, "conversion_reject_failed")
		return nil, err
	}

	s.logger.Info(ctx, "Conversion rejected and refunded", map[string]interface{}{
		"conversion_id":   req.ConversionID,
		"admin_id":        req.AdminID,
		"refunded_points": result.RefundedPoints,
	})

	return result, nil
}

// UpdateRate 既存レートをすべて無効化し、新しい有効レートを作成する
// 有効なレートが常に最大1件である状態を維持する
func (s *AdminApplicationService) UpdateRate(ctx context.Context, req *UpdateRateRequest) (*RateDTO, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.UpdateRate")
	defer span.End()

	span.SetAttributes(
		attribute.String("admin_id", req.AdminID),
		attribute.Int64("points_per_cvc", req.PointsPerCVC),
	)

	s.logger.Info(ctx, "Updating conversion rate", map[string]interface{}{
		"admin_id":       req.AdminID,
		"points_per_cvc": req.PointsPerCVC,
		"minimum_points": req.MinimumPoints,
	})

	effectiveFrom := time.Now()
	if req.EffectiveFrom != nil {
		effectiveFrom = *req.EffectiveFrom
	}

	newRate, err := rate.NewConversionRate(
		fmt.Sprintf("rate_%s", uuid.NewString()),
		req.PointsPerCVC,
		req.MinimumPoints,
		req.MinimumCVC,
		req.ClaimFeeETH,
		true,
		effectiveFrom,
		req.AdminID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		rateRepo := s.rateRepo.WithTx(tx)
		if err := rateRepo.DeactivateAll(ctx); err != nil {
			return fmt.Errorf("failed to deactivate rates: %w", err)
		}
		if err := rateRepo.Create(ctx, newRate); err != nil {
			return fmt.Errorf("failed to create rate: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to update rate", err, map[string]interface{}{
			"admin_id": req.AdminID,
		})
		s.metrics.RecordError(ctx, "rate_update_failed")
		return nil, err
	}

	s.logger.Info(ctx, "Conversion rate updated", map[string]interface{}{
		"admin_id": req.AdminID,
		"rate_id":  newRate.RateID(),
	})

	dto := toRateDTO(newRate)
	return &dto, nil
}

// ListConversions 変換一覧を取得する（statusフィルタ対応）
func (s *AdminApplicationService) ListConversions(ctx context.Context, req *ListConversionsRequest) (*ListConversionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.ListConversions")
	defer span.End()

	span.SetAttributes(
		attribute.String("status", req.Status),
		attribute.Int("page", req.Page),
		attribute.Int("limit", req.Limit),
	)

	// ""と"all"はフィルタなし。それ以外の値は完全一致で照合し、未知の値は空ページになる
	page, limit := normalizePagination(req.Page, req.Limit)
	offset := (page - 1) * limit

	conversions, err := s.conversionRepo.FindAll(ctx, req.Status, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	total, err := s.conversionRepo.CountAll(ctx, req.Status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to count conversions: %w", err)
	}

	dtos := make([]ConversionDTO, 0, len(conversions))
	for _, c := range conversions {
		dtos = append(dtos, toConversionDTO(c))
	}

	return &ListConversionsResponse{
		Conversions: dtos,
		Pagination:  newPagination(page, limit, total),
	}, nil
}

// GetConversion 変換IDで変換レコードを取得する
func (s *AdminApplicationService) GetConversion(ctx context.Context, conversionID string) (*ConversionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.GetConversion")
	defer span.End()

	span.SetAttributes(attribute.String("conversion_id", conversionID))

	c, err := s.conversionRepo.FindByConversionID(ctx, conversionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	dto := toConversionDTO(c)
	return &dto, nil
}

// Stats 全体の集計を取得する
func (s *AdminApplicationService) Stats(ctx context.Context) (*StatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.Stats")
	defer span.End()

	stats, err := s.conversionRepo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	return &StatsResponse{
		TotalConversions:     stats.TotalConversions,
		TotalPointsConverted: stats.TotalPointsConverted,
		TotalCVCGenerated:    stats.TotalCVCGenerated,
		TotalClaimed:         stats.TotalClaimed,
		TotalPending:         stats.TotalPending,
	}, nil
}

// ListRates レート履歴を取得する
func (s *AdminApplicationService) ListRates(ctx context.Context, req *ListRatesRequest) (*ListRatesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.ListRates")
	defer span.End()

	page, limit := normalizePagination(req.Page, req.Limit)
	offset := (page - 1) * limit

	rates, err := s.rateRepo.FindAll(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}

	total, err := s.rateRepo.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to count rates: %w", err)
	}

	dtos := make([]RateDTO, 0, len(rates))
	for _, r := range rates {
		dtos = append(dtos, toRateDTO(r))
	}

	return &ListRatesResponse{
		Rates:      dtos,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// CurrentRate 現在有効なレートを取得する
func (s *AdminApplicationService) CurrentRate(ctx context.Context) (*RateDTO, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.CurrentRate")
	defer span.End()

	r, err := s.rateRepo.FindActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	dto := toRateDTO(r)
	return &dto, nil
}

// ListUserHistory ユーザーのポイント履歴を取得する
func (s *AdminApplicationService) ListUserHistory(ctx context.Context, req *ListUserHistoryRequest) (*ListUserHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AdminApplicationService.ListUserHistory")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", req.UserID))

	page, limit := normalizePagination(req.Page, req.Limit)
	offset := (page - 1) * limit

	entries, err := s.historyRepo.FindByUserID(ctx, req.UserID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	total, err := s.historyRepo.CountByUserID(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	dtos := make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, HistoryEntryDTO{
			HistoryID:   e.HistoryID(),
			UserID:      e.UserID(),
			Type:        e.EntryType().String(),
			Points:      e.Points(),
			Description: e.Description(),
			RelatedID:   e.RelatedID(),
			CreatedAt:   e.CreatedAt(),
		})
	}

	return &ListUserHistoryResponse{
		History:    dtos,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// toConversionDTO 変換エンティティをレスポンス表現に変換する
func toConversionDTO(c *conversion.Conversion) ConversionDTO {
	dto := ConversionDTO{
		ConversionID:    c.ConversionID(),
		PointsConverted: c.PointsConverted(),
		CVCAmount:       c.CVCAmount(),
		ConversionRate:  c.ConversionRate(),
		ClaimFee:        c.ClaimFee().String(),
		Status:          c.Status().String(),
		TransactionHash: c.TransactionHash(),
		WalletAddress:   c.WalletAddress(),
		AdminNote:       c.AdminNote(),
		ApprovedBy:      c.ApprovedBy(),
		ApprovedAt:      c.ApprovedAt(),
		ClaimedAt:       c.ClaimedAt(),
		CreatedAt:       c.CreatedAt(),
		UpdatedAt:       c.UpdatedAt(),
	}

	user := c.User()
	info := &UserInfo{UserID: user.CanonicalID()}
	if user.IsPopulated() {
		info.DisplayName = user.Snapshot().DisplayName
	}
	dto.User = info

	return dto
}

// toRateDTO レートエンティティをレスポンス表現に変換する
func toRateDTO(r *rate.ConversionRate) RateDTO {
	return RateDTO{
		RateID:        r.RateID(),
		PointsPerCVC:  r.PointsPerCVC(),
		MinimumPoints: r.MinimumPoints(),
		MinimumCVC:    r.MinimumCVC().String(),
		ClaimFeeETH:   r.ClaimFeeETH().String(),
		IsActive:      r.IsActive(),
		EffectiveFrom: r.EffectiveFrom(),
		CreatedBy:     r.CreatedBy(),
		CreatedAt:     r.CreatedAt(),
	}
}

// normalizePagination ページ番号と件数を既定値・上限内に収める
func normalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// newPagination ページネーション情報を組み立てる
func newPagination(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
