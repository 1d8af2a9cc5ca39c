package rate

import "errors"

var (
	// ErrRateNotFound レートが見つからないエラー
	ErrRateNotFound = errors.New("conversion rate not found")
	// ErrNoActiveRate 有効なレートが存在しないエラー
	ErrNoActiveRate = errors.New("no active conversion rate")
)
