package conversion

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
	"cvc-server/internal/domain/service"
	"cvc-server/internal/infrastructure/config"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ConversionApplicationService 変換アプリケーションサービス
type ConversionApplicationService struct {
	conversionRepo    conversion.ConversionRepository
	balanceRepo       points.BalanceRepository
	historyRepo       points.HistoryRepository
	txManager         conversion.TransactionManager
	conversionService *service.ConversionService
	network           config.NetworkConfig
	logger            *otelinfra.Logger
	metrics           *otelinfra.Metrics
	tracer            trace.Tracer
	maxRetries        int
}

// NewConversionApplicationService 新しいConversionApplicationServiceを作成
func NewConversionApplicationService(
	conversionRepo conversion.ConversionRepository,
	balanceRepo points.BalanceRepository,
	historyRepo points.HistoryRepository,
	txManager conversion.TransactionManager,
	conversionService *service.ConversionService,
	network config.NetworkConfig,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *ConversionApplicationService {
	return &ConversionApplicationService{
		conversionRepo:    conversionRepo,
		balanceRepo:       balanceRepo,
		historyRepo:       historyRepo,
		txManager:         txManager,
		conversionService: conversionService,
		network:           network,
		logger:            logger,
		metrics:           metrics,
		tracer:            otel.Tracer("conversion-service"),
		maxRetries:        3,
	}
}

// Create 変換リクエストを作成
// レート検証・残高減算・台帳記録・履歴追記を1トランザクションで行う。
// ポイントは作成時点で減算され、承認を待たずに残高から消える
func (s *ConversionApplicationService) Create(ctx context.Context, req *CreateConversionRequest) (*CreateConversionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int64("points", req.Points),
	)

	s.logger.Info(ctx, "Creating conversion request", map[string]interface{}{
		"user_id": req.UserID,
		"points":  req.Points,
	})

	conversionID := generateID("cnv")

	var result *CreateConversionResponse
	err := s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		// 3つの書き込みはすべてtx束縛リポジトリを経由させる
		conversionRepo := s.conversionRepo.WithTx(tx)
		balanceRepo := s.balanceRepo.WithTx(tx)
		historyRepo := s.historyRepo.WithTx(tx)

		// 楽観的ロックのリトライロジック
		var retryErr error
		for attempt := 0; attempt < s.maxRetries; attempt++ {
			if attempt > 0 {
				// 指数バックオフ
				backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 10 * time.Millisecond
				time.Sleep(backoff)
			}

			// レート検証と残高チェック（検証順序はここで保証される）
			eval, err := s.conversionService.Evaluate(ctx, req.UserID, req.Points)
			if err != nil {
				// 有効レートなしは変換停止中として扱う
				if errors.Is(err, rate.ErrNoActiveRate) {
					return rate.NewValidationError("Points conversion is currently disabled")
				}
				return err
			}

			// 残高を減算
			balance, err := balanceRepo.FindByUserID(ctx, req.UserID)
			if err != nil {
				return fmt.Errorf("failed to find balance: %w", err)
			}
			if err := balance.Debit(req.Points); err != nil {
				return err
			}

			// 保存（楽観的ロック）
			if err := balanceRepo.Save(ctx, balance); err != nil {
				if attempt < s.maxRetries-1 {
					retryErr = err
					continue
				}
				return fmt.Errorf("failed to save balance after retries: %w", err)
			}

			// 台帳レコードを作成（作成時点のレートを凍結）
			c, err := conversion.NewConversion(
				conversionID,
				conversion.NewUserRef(req.UserID),
				req.Points,
				eval.CVCAmount,
				eval.Rate.PointsPerCVC(),
				eval.Rate.ClaimFeeETH(),
			)
			if err != nil {
				return err
			}
			if err := conversionRepo.Save(ctx, c); err != nil {
				return fmt.Errorf("failed to save conversion: %w", err)
			}

			// 履歴を追記
			entry, err := points.NewHistoryEntry(
				generateID("hist"),
				req.UserID,
				points.HistoryTypeConversionDeduction,
				-req.Points,
				fmt.Sprintf("Converted %d points to %d CVC", req.Points, eval.CVCAmount),
				conversionID,
			)
			if err != nil {
				return err
			}
			if err := historyRepo.Append(ctx, entry); err != nil {
				return fmt.Errorf("failed to append history: %w", err)
			}

			// メトリクス記録
			s.metrics.RecordConversion(ctx, "pending")
			s.metrics.RecordPointsConverted(ctx, req.Points)
			s.metrics.RecordPointsBalance(ctx, req.UserID, balance.TotalPoints())

			result = &CreateConversionResponse{
				ConversionID:    c.ConversionID(),
				PointsConverted: c.PointsConverted(),
				CVCAmount:       c.CVCAmount(),
				ConversionRate:  c.ConversionRate(),
				ClaimFee:        c.ClaimFee().String(),
				Status:          c.Status().String(),
				CreatedAt:       c.CreatedAt(),
			}

			return nil
		}

		return retryErr
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to create conversion", err, map[string]interface{}{
			"user_id": req.UserID,
			"points":  req.Points,
		})
		s.metrics.RecordError(ctx, "conversion_create_failed")
		return nil, err
	}

	s.logger.Info(ctx, "Conversion request created", map[string]interface{}{
		"user_id":       req.UserID,
		"conversion_id": result.ConversionID,
		"cvc_amount":    result.CVCAmount,
	})

	return result, nil
}

// List ユーザーの変換一覧を集計付きで取得
func (s *ConversionApplicationService) List(ctx context.Context, req *ListConversionsRequest) (*ListConversionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.List")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("page", req.Page),
		attribute.Int("limit", req.Limit),
	)

	page, limit := normalizePagination(req.Page, req.Limit)
	offset := (page - 1) * limit

	conversions, err := s.conversionRepo.FindByUserID(ctx, req.UserID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	total, err := s.conversionRepo.CountByUserID(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to count conversions: %w", err)
	}

	stats, err := s.conversionRepo.StatsByUserID(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	dtos := make([]ConversionDTO, 0, len(conversions))
	for _, c := range conversions {
		dtos = append(dtos, toConversionDTO(c))
	}

	return &ListConversionsResponse{
		Conversions: dtos,
		Pagination:  newPagination(page, limit, total),
		Stats: UserStatsDTO{
			TotalPointsConverted: stats.TotalPointsConverted,
			TotalCVCClaimed:      stats.TotalCVCClaimed,
			PendingConversions:   stats.PendingConversions,
		},
	}, nil
}

// Claim 承認済みの変換をクレーム済みにする
// トランザクションハッシュは申告値で、チェーン上の検証はしない
func (s *ConversionApplicationService) Claim(ctx context.Context, req *ClaimRequest) (*ClaimResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.Claim")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("conversion_id", req.ConversionID),
	)

	s.logger.Info(ctx, "Claiming conversion", map[string]interface{}{
		"user_id":       req.UserID,
		"conversion_id": req.ConversionID,
	})

	c, err := s.conversionRepo.FindByConversionID(ctx, req.ConversionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 所有権チェック（生IDと展開済み表現のどちらでも比較できる）
	if !c.IsOwnedBy(req.UserID) {
		err := conversion.ErrNotOwner
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := c.Claim(req.WalletAddress, req.TransactionHash); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := s.conversionRepo.Update(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.RecordError(ctx, "conversion_claim_failed")
		return nil, err
	}

	s.metrics.RecordConversion(ctx, "claimed")

	s.logger.Info(ctx, "Conversion claimed", map[string]interface{}{
		"user_id":       req.UserID,
		"conversion_id": req.ConversionID,
		"cvc_amount":    c.CVCAmount(),
	})

	return &ClaimResponse{
		ConversionID:    c.ConversionID(),
		CVCAmount:       c.CVCAmount(),
		TransactionHash: c.TransactionHash(),
		WalletAddress:   c.WalletAddress(),
		Status:          c.Status().String(),
		ClaimedAt:       *c.ClaimedAt(),
	}, nil
}

// GetCurrentRate 現在の有効レートとチェーン情報を取得
func (s *ConversionApplicationService) GetCurrentRate(ctx context.Context) (*RateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.GetCurrentRate")
	defer span.End()

	r, err := s.conversionService.ActiveRate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	return &RateResponse{
		PointsPerCVC:             r.PointsPerCVC(),
		MinimumPoints:            r.MinimumPoints(),
		MinimumCVC:               r.MinimumCVC().String(),
		ClaimFeeETH:              r.ClaimFeeETH().String(),
		IsActive:                 r.IsActive(),
		EffectiveFrom:            r.EffectiveFrom(),
		Network:                  s.network.Network,
		CompanyWallet:            s.network.CompanyWallet,
		CVCContractAddress:       s.network.CVCContractAddress,
		LiquidityContractAddress: s.network.LiquidityContractAddress,
	}, nil
}

// Validate 変換可否のドライラン
// 残高もレコードも変更せず、作成した場合の結果だけを返す
func (s *ConversionApplicationService) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.Validate")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int64("points", req.Points),
	)

	eval, err := s.conversionService.Evaluate(ctx, req.UserID, req.Points)
	if err != nil {
		// 検証エラーはドライラン結果として返す
		var ve *rate.ValidationError
		switch {
		case errors.Is(err, rate.ErrNoActiveRate):
			return &ValidateResponse{Valid: false, Message: "Points conversion is currently disabled"}, nil
		case errors.As(err, &ve):
			return &ValidateResponse{Valid: false, Message: ve.Error()}, nil
		case errors.Is(err, points.ErrInsufficientPoints):
			return &ValidateResponse{Valid: false, Message: err.Error()}, nil
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	return &ValidateResponse{
		Valid:          true,
		CVCAmount:      eval.CVCAmount,
		CurrentBalance: eval.TotalPoints,
	}, nil
}

// GetBalance ポイント残高を取得
func (s *ConversionApplicationService) GetBalance(ctx context.Context, userID string) (*GetBalanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.GetBalance")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	balance, err := s.balanceRepo.FindByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.metrics.RecordPointsBalance(ctx, userID, balance.TotalPoints())

	return &GetBalanceResponse{
		UserID:      balance.UserID(),
		TotalPoints: balance.TotalPoints(),
	}, nil
}

// ListHistory ポイント履歴一覧を取得
func (s *ConversionApplicationService) ListHistory(ctx context.Context, req *ListHistoryRequest) (*ListHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ConversionApplicationService.ListHistory")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("page", req.Page),
		attribute.Int("limit", req.Limit),
	)

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

	return &ListHistoryResponse{
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

// generateID プレフィックス付きのIDを生成
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
