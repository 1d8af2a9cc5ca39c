package rate

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRateID レートIDが無効
	ErrInvalidRateID = errors.New("invalid rate id")
	// ErrInvalidPointsPerCVC ポイント/CVC比率が無効
	ErrInvalidPointsPerCVC = errors.New("invalid points per cvc")
	// ErrInvalidMinimumPoints 最小ポイント数が無効
	ErrInvalidMinimumPoints = errors.New("invalid minimum points")
	// ErrInvalidMinimumCVC 最小CVC量が無効
	ErrInvalidMinimumCVC = errors.New("invalid minimum cvc")
	// ErrInvalidClaimFee クレーム手数料が無効
	ErrInvalidClaimFee = errors.New("invalid claim fee")
)

// ConversionRate 変換レートエンティティ
// 管理者が発行するポリシーのスナップショット。無効化以外では書き換えない
type ConversionRate struct {
	rateID        string
	pointsPerCVC  int64 // 1CVCあたりの必要ポイント数（整数値）
	minimumPoints int64 // 1回の変換に必要な最小ポイント数
	minimumCVC    decimal.Decimal
	claimFeeETH   decimal.Decimal
	isActive      bool
	effectiveFrom time.Time
	createdBy     string
	createdAt     time.Time
}

// NewConversionRate 新しいConversionRateエンティティを作成
func NewConversionRate(
	rateID string,
	pointsPerCVC int64,
	minimumPoints int64,
	minimumCVC decimal.Decimal,
	claimFeeETH decimal.Decimal,
	isActive bool,
	effectiveFrom time.Time,
	createdBy string,
) (*ConversionRate, error) {
	if rateID == "" {
		return nil, ErrInvalidRateID
	}
	if pointsPerCVC <= 0 {
		return nil, ErrInvalidPointsPerCVC
	}
	if minimumPoints <= 0 {
		return nil, ErrInvalidMinimumPoints
	}
	if minimumCVC.Sign() <= 0 {
		return nil, ErrInvalidMinimumCVC
	}
	if claimFeeETH.Sign() < 0 {
		return nil, ErrInvalidClaimFee
	}

	return &ConversionRate{
		rateID:        rateID,
		pointsPerCVC:  pointsPerCVC,
		minimumPoints: minimumPoints,
		minimumCVC:    minimumCVC,
		claimFeeETH:   claimFeeETH,
		isActive:      isActive,
		effectiveFrom: effectiveFrom,
		createdBy:     createdBy,
		createdAt:     time.Now(),
	}, nil
}

// Reconstruct 永続化層からConversionRateエンティティを復元する
// バリデーション済みのデータを前提とするため検証は行わない
func Reconstruct(
	rateID string,
	pointsPerCVC int64,
	minimumPoints int64,
	minimumCVC decimal.Decimal,
	claimFeeETH decimal.Decimal,
	isActive bool,
	effectiveFrom time.Time,
	createdBy string,
	createdAt time.Time,
) *ConversionRate {
	return &ConversionRate{
		rateID:        rateID,
		pointsPerCVC:  pointsPerCVC,
		minimumPoints: minimumPoints,
		minimumCVC:    minimumCVC,
		claimFeeETH:   claimFeeETH,
		isActive:      isActive,
		effectiveFrom: effectiveFrom,
		createdBy:     createdBy,
		createdAt:     createdAt,
	}
}

// RateID レートIDを返す
func (r *ConversionRate) RateID() string {
	return r.rateID
}

// PointsPerCVC 1CVCあたりの必要ポイント数を返す
func (r *ConversionRate) PointsPerCVC() int64 {
	return r.pointsPerCVC
}

// MinimumPoints 最小ポイント数を返す
func (r *ConversionRate) MinimumPoints() int64 {
	return r.minimumPoints
}

// MinimumCVC 最小CVC量を返す
func (r *ConversionRate) MinimumCVC() decimal.Decimal {
	return r.minimumCVC
}

// ClaimFeeETH クレーム手数料（ETH）を返す
func (r *ConversionRate) ClaimFeeETH() decimal.Decimal {
	return r.claimFeeETH
}

// IsActive 有効なレートかどうかを返す
func (r *ConversionRate) IsActive() bool {
	return r.isActive
}

// EffectiveFrom 適用開始日時を返す
func (r *ConversionRate) EffectiveFrom() time.Time {
	return r.effectiveFrom
}

// CreatedBy 作成した管理者IDを返す
func (r *ConversionRate) CreatedBy() string {
	return r.createdBy
}

// CreatedAt 作成日時を返す
func (r *ConversionRate) CreatedAt() time.Time {
	return r.createdAt
}

// Deactivate レートを無効化する
func (r *ConversionRate) Deactivate() {
	r.isActive = false
}

// CVCFromPoints ポイント数から変換後のCVC量を計算する（切り捨て）
func (r *ConversionRate) CVCFromPoints(points int64) int64 {
	return points / r.pointsPerCVC
}

// MustNewConversionRate テスト用ヘルパー: NewConversionRateを呼び出し、エラーが発生した場合はpanicする
func MustNewConversionRate(
	rateID string,
	pointsPerCVC int64,
	minimumPoints int64,
	minimumCVC decimal.Decimal,
	claimFeeETH decimal.Decimal,
	isActive bool,
	effectiveFrom time.Time,
	createdBy string,
) *ConversionRate {
	r, err := NewConversionRate(rateID, pointsPerCVC, minimumPoints, minimumCVC, claimFeeETH, isActive, effectiveFrom, createdBy)
	if err != nil {
		panic(err)
	}
	return r
}
