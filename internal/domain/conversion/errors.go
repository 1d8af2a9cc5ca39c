package conversion

import "errors"

var (
	// ErrConversionNotFound 変換レコードが見つからないエラー
	ErrConversionNotFound = errors.New("conversion not found")
	// ErrNotPending 承認待ち状態でないレコードへの承認/却下エラー
	ErrNotPending = errors.New("Conversion is not in pending status")
	// ErrNotApproved 承認済み状態でないレコードへのクレームエラー
	ErrNotApproved = errors.New("Conversion not approved for claiming")
	// ErrNotOwner 所有者以外によるクレームエラー
	ErrNotOwner = errors.New("not authorized to access this conversion")
	// ErrInvalidWalletAddress ウォレットアドレスの形式が無効
	ErrInvalidWalletAddress = errors.New("invalid wallet address format")
	// ErrInvalidTransactionHash トランザクションハッシュの形式が無効
	ErrInvalidTransactionHash = errors.New("invalid transaction hash format")
	// ErrInvalidStatus ステータス値が無効
	ErrInvalidStatus = errors.New("invalid conversion status")
)
