package points

import "errors"

var (
	// ErrInsufficientPoints 残高不足エラー
	ErrInsufficientPoints = errors.New("Insufficient points balance")
	// ErrInvalidAmount 無効なポイント数エラー
	ErrInvalidAmount = errors.New("invalid points amount")
	// ErrBalanceNotFound 残高が見つからないエラー
	ErrBalanceNotFound = errors.New("points balance not found")
)
