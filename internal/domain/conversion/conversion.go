package conversion

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidConversionID 変換IDが無効
	ErrInvalidConversionID = errors.New("invalid conversion id")
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidPoints ポイント数が無効
	ErrInvalidPoints = errors.New("invalid points amount")
	// ErrInvalidCVCAmount CVC量が無効
	ErrInvalidCVCAmount = errors.New("invalid cvc amount")
	// ErrInvalidConversionRate レートのスナップショットが無効
	ErrInvalidConversionRate = errors.New("invalid conversion rate snapshot")
)

// Conversion ポイント→CVC変換の台帳エンティティ
// pointsConverted / cvcAmount / conversionRate / claimFee は作成時に凍結され、
// その後レートが変わっても書き換えない
type Conversion struct {
	conversionID    string
	user            UserRef
	pointsConverted int64
	cvcAmount       int64
	conversionRate  int64 // 作成時点のpointsPerCVCスナップショット
	claimFee        decimal.Decimal
	status          ConversionStatus
	transactionHash string
	walletAddress   string
	adminNote       string
	approvedBy      string
	approvedAt      *time.Time
	claimedAt       *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewConversion 新しいConversionエンティティを作成（ステータスはpending）
func NewConversion(
	conversionID string,
	user UserRef,
	pointsConverted int64,
	cvcAmount int64,
	conversionRate int64,
	claimFee decimal.Decimal,
) (*Conversion, error) {
	if conversionID == "" {
		return nil, ErrInvalidConversionID
	}
	if user.CanonicalID() == "" {
		return nil, ErrInvalidUserID
	}
	if pointsConverted <= 0 {
		return nil, ErrInvalidPoints
	}
	if cvcAmount < 0 {
		return nil, ErrInvalidCVCAmount
	}
	if conversionRate <= 0 {
		return nil, ErrInvalidConversionRate
	}

	now := time.Now()
	return &Conversion{
		conversionID:    conversionID,
		user:            user,
		pointsConverted: pointsConverted,
		cvcAmount:       cvcAmount,
		conversionRate:  conversionRate,
		claimFee:        claimFee,
		status:          ConversionStatusPending,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct 永続化されたレコードからConversionエンティティを復元
func Reconstruct(
	conversionID string,
	user UserRef,
	pointsConverted int64,
	cvcAmount int64,
	conversionRate int64,
	claimFee decimal.Decimal,
	status ConversionStatus,
	transactionHash string,
	walletAddress string,
	adminNote string,
	approvedBy string,
	approvedAt *time.Time,
	claimedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Conversion {
	return &Conversion{
		conversionID:    conversionID,
		user:            user,
		pointsConverted: pointsConverted,
		cvcAmount:       cvcAmount,
		conversionRate:  conversionRate,
		claimFee:        claimFee,
		status:          status,
		transactionHash: transactionHash,
		walletAddress:   walletAddress,
		adminNote:       adminNote,
		approvedBy:      approvedBy,
		approvedAt:      approvedAt,
		claimedAt:       claimedAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ConversionID 変換IDを返す
func (c *Conversion) ConversionID() string {
	return c.conversionID
}

// User ユーザー参照を返す
func (c *Conversion) User() UserRef {
	return c.user
}

// PointsConverted 変換されたポイント数を返す
func (c *Conversion) PointsConverted() int64 {
	return c.pointsConverted
}

// CVCAmount 変換後のCVC量を返す
func (c *Conversion) CVCAmount() int64 {
	return c.cvcAmount
}

// ConversionRate 作成時点のpointsPerCVCスナップショットを返す
func (c *Conversion) ConversionRate() int64 {
	return c.conversionRate
}

// ClaimFee クレーム手数料のスナップショットを返す
func (c *Conversion) ClaimFee() decimal.Decimal {
	return c.claimFee
}

// Status ステータスを返す
func (c *Conversion) Status() ConversionStatus {
	return c.status
}

// TransactionHash クレーム時に記録されたトランザクションハッシュを返す
func (c *Conversion) TransactionHash() string {
	return c.transactionHash
}

// WalletAddress クレーム時に記録されたウォレットアドレスを返す
func (c *Conversion) WalletAddress() string {
	return c.walletAddress
}

// AdminNote 管理者メモを返す
func (c *Conversion) AdminNote() string {
	return c.adminNote
}

// ApprovedBy 承認/却下した管理者IDを返す
func (c *Conversion) ApprovedBy() string {
	return c.approvedBy
}

// ApprovedAt 承認/却下日時を返す
func (c *Conversion) ApprovedAt() *time.Time {
	return c.approvedAt
}

// ClaimedAt クレーム日時を返す
func (c *Conversion) ClaimedAt() *time.Time {
	return c.claimedAt
}

// CreatedAt 作成日時を返す
func (c *Conversion) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt 更新日時を返す
func (c *Conversion) UpdatedAt() time.Time {
	return c.updatedAt
}

// IsOwnedBy 指定されたユーザーが所有者かどうかを返す
// 生IDと展開済みスナップショットの両表現を正規化して比較する
func (c *Conversion) IsOwnedBy(userID string) bool {
	return c.user.CanonicalID() == userID
}

// Approve 変換を承認する（pendingからのみ）
// ポイントは作成時に減算済みのため残高は変化しない
func (c *Conversion) Approve(adminID string, note string) error {
	if !c.status.CanTransitionTo(ConversionStatusApproved) {
		return ErrNotPending
	}
	now := time.Now()
	c.status = ConversionStatusApproved
	c.adminNote = note
	c.approvedBy = adminID
	c.approvedAt = &now
	c.updatedAt = now
	return nil
}

// Reject 変換を却下する（pendingからのみ）
func (c *Conversion) Reject(adminID string, reason string) error {
	if !c.status.CanTransitionTo(ConversionStatusRejected) {
		return ErrNotPending
	}
	now := time.Now()
	c.status = ConversionStatusRejected
	c.adminNote = reason
	c.approvedBy = adminID
	c.approvedAt = &now
	c.updatedAt = now
	return nil
}

// Claim 変換をクレーム済みにする（approvedからのみ）
// トランザクションハッシュは申告値をそのまま記録する
func (c *Conversion) Claim(walletAddress string, transactionHash string) error {
	if !c.status.CanTransitionTo(ConversionStatusClaimed) {
		return ErrNotApproved
	}
	if !IsValidWalletAddress(walletAddress) {
		return ErrInvalidWalletAddress
	}
	if !IsValidTransactionHash(transactionHash) {
		return ErrInvalidTransactionHash
	}
	now := time.Now()
	c.status = ConversionStatusClaimed
	c.walletAddress = walletAddress
	c.transactionHash = transactionHash
	c.claimedAt = &now
	c.updatedAt = now
	return nil
}

// MustNewConversion テスト用ヘルパー: NewConversionを呼び出し、エラーが発生した場合はpanicする
func MustNewConversion(
	conversionID string,
	user UserRef,
	pointsConverted int64,
	cvcAmount int64,
	conversionRate int64,
	claimFee decimal.Decimal,
) *Conversion {
	c, err := NewConversion(conversionID, user, pointsConverted, cvcAmount, conversionRate, claimFee)
	if err != nil {
		panic(err)
	}
	return c
}
