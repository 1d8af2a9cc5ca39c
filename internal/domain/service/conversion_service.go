package service

import (
	"context"

	"cvc-server/internal/domain/points"
	"cvc-server/internal/domain/rate"
)

// Evaluation 変換前チェックの結果
type Evaluation struct {
	Rate        *rate.ConversionRate
	CVCAmount   int64
	TotalPoints int64
}

// ConversionService 変換関連のドメインサービス
// レート検証と残高チェックを、作成フローとドライラン検証の両方から共有する
type ConversionService struct {
	rateRepo    rate.ConversionRateRepository
	balanceRepo points.BalanceRepository
}

// NewConversionService 新しいConversionServiceを作成
func NewConversionService(rateRepo rate.ConversionRateRepository, balanceRepo points.BalanceRepository) *ConversionService {
	return &ConversionService{
		rateRepo:    rateRepo,
		balanceRepo: balanceRepo,
	}
}

// ActiveRate 現在有効なレートを取得する
func (s *ConversionService) ActiveRate(ctx context.Context) (*rate.ConversionRate, error) {
	r, err := s.rateRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Evaluate ポイント数を現在のレートとユーザー残高に対して検証する
// チェック順序は固定: レート取得 → ユーザー取得 → レート検証 → 残高チェック
// レート検証で弾かれるユーザーには残高不足より先にレートのメッセージを返す
func (s *ConversionService) Evaluate(ctx context.Context, userID string, pointsToConvert int64) (*Evaluation, error) {
	r, err := s.rateRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.balanceRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cvcAmount, err := r.Validate(pointsToConvert)
	if err != nil {
		return nil, err
	}

	if !balance.HasAtLeast(pointsToConvert) {
		return nil, points.ErrInsufficientPoints
	}

	return &Evaluation{
		Rate:        r,
		CVCAmount:   cvcAmount,
		TotalPoints: balance.TotalPoints(),
	}, nil
}
