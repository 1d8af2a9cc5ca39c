package conversion

import (
	"fmt"
)

// ConversionStatus 変換ステータスを表す値オブジェクト
type ConversionStatus string

const (
	ConversionStatusPending  ConversionStatus = "pending"  // 承認待ち
	ConversionStatusApproved ConversionStatus = "approved" // 承認済み
	ConversionStatusRejected ConversionStatus = "rejected" // 却下
	ConversionStatusClaimed  ConversionStatus = "claimed"  // クレーム済み
)

// NewConversionStatus 新しいConversionStatusを作成
func NewConversionStatus(s string) (ConversionStatus, error) {
	switch s {
	case "pending", "approved", "rejected", "claimed":
		return ConversionStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
}

// String 文字列表現を返す
func (cs ConversionStatus) String() string {
	return string(cs)
}

// Valid 有効なステータスかどうかを返す
func (cs ConversionStatus) Valid() bool {
	switch cs {
	case ConversionStatusPending, ConversionStatusApproved, ConversionStatusRejected, ConversionStatusClaimed:
		return true
	default:
		return false
	}
}

// CanTransitionTo 指定されたステータスへ遷移可能かどうかを返す
// 許可される遷移: pending→approved, pending→rejected, approved→claimed
func (cs ConversionStatus) CanTransitionTo(next ConversionStatus) bool {
	switch cs {
	case ConversionStatusPending:
		return next == ConversionStatusApproved || next == ConversionStatusRejected
	case ConversionStatusApproved:
		return next == ConversionStatusClaimed
	default:
		return false
	}
}

// IsPending 承認待ち状態かどうかを返す
func (cs ConversionStatus) IsPending() bool {
	return cs == ConversionStatusPending
}

// IsApproved 承認済み状態かどうかを返す
func (cs ConversionStatus) IsApproved() bool {
	return cs == ConversionStatusApproved
}

// IsClaimed クレーム済み状態かどうかを返す
func (cs ConversionStatus) IsClaimed() bool {
	return cs == ConversionStatusClaimed
}
