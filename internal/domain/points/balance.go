package points

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = errors.New("points balance out of range")
	// ErrAmountTooLarge ポイント数が大きすぎる
	ErrAmountTooLarge = errors.New("points amount too large")
)

const (
	// MaxPoints 最大ポイント数 (10兆)
	MaxPoints = 10_000_000_000_000
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Balance ユーザーのポイント残高エンティティ
type Balance struct {
	userID      string
	totalPoints int64
	version     int // 楽観的ロック用
}

// NewBalance 新しいBalanceエンティティを作成
func NewBalance(userID string, totalPoints int64, version int) (*Balance, error) {
	if !userIDRegex.MatchString(userID) {
		return nil, ErrInvalidUserID
	}
	if totalPoints < 0 || totalPoints > MaxPoints {
		return nil, ErrBalanceOutOfRange
	}
	return &Balance{
		userID:      userID,
		totalPoints: totalPoints,
		version:     version,
	}, nil
}

// UserID ユーザーIDを返す
func (b *Balance) UserID() string {
	return b.userID
}

// TotalPoints 現在のポイント残高を返す
func (b *Balance) TotalPoints() int64 {
	return b.totalPoints
}

// Version バージョンを返す（楽観的ロック用）
func (b *Balance) Version() int {
	return b.version
}

// HasAtLeast 指定されたポイント数以上の残高があるかどうかを返す
func (b *Balance) HasAtLeast(amount int64) bool {
	return b.totalPoints >= amount
}

// Credit ポイントを加算する（却下時の返金など）
func (b *Balance) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxPoints {
		return ErrAmountTooLarge
	}
	// オーバーフローチェック
	if b.totalPoints > MaxPoints-amount {
		return ErrBalanceOutOfRange
	}
	b.totalPoints += amount
	b.version++
	return nil
}

// Debit ポイントを減算する（マイナス残高は許可しない）
func (b *Balance) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxPoints {
		return ErrAmountTooLarge
	}
	if b.totalPoints < amount {
		return ErrInsufficientPoints
	}
	b.totalPoints -= amount
	b.version++
	return nil
}

// MustNewBalance テスト用ヘルパー: NewBalanceを呼び出し、エラーが発生した場合はpanicする
func MustNewBalance(userID string, totalPoints int64, version int) *Balance {
	b, err := NewBalance(userID, totalPoints, version)
	if err != nil {
		panic(err)
	}
	return b
}
