package rate

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError 変換バリデーションエラー
// メッセージはそのままクライアントに表示される
type ValidationError struct {
	message string
}

// Error エラーメッセージを返す
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 新しいValidationErrorを作成
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// Validate ポイント数をレートポリシーに対して検証し、変換後のCVC量を返す
// チェック順序は固定: 無効レート → ポイント下限 → CVC下限
// ポイント下限を下回るユーザーには、CVC下限も下回っていてもポイント下限のメッセージを返す
func (r *ConversionRate) Validate(points int64) (int64, error) {
	if !r.isActive {
		return 0, NewValidationError("Points conversion is currently disabled")
	}
	if points < r.minimumPoints {
		return 0, NewValidationError(fmt.Sprintf("Minimum %d points required for conversion", r.minimumPoints))
	}

	cvcAmount := r.CVCFromPoints(points)
	if decimal.NewFromInt(cvcAmount).LessThan(r.minimumCVC) {
		return 0, NewValidationError(fmt.Sprintf("Conversion results in less than minimum %s CVC", r.minimumCVC.String()))
	}

	return cvcAmount, nil
}
