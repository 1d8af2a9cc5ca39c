package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"cvc-server/internal/application/admin"
	"cvc-server/internal/domain/conversion"
	"cvc-server/internal/domain/points"
	"cvc-server/internal/domain/rate"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
)

// ErrorResponse エラーレスポンスエンベロープ
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrorHandlerMiddleware エラーハンドリングミドルウェア
func ErrorHandlerMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			// エラーハンドリング
			return handleError(c, err, logger)
		}
	}
}

// badRequestErrs 400にマッピングするドメインエラー
var badRequestErrs = []error{
	points.ErrInsufficientPoints,
	points.ErrInvalidAmount,
	points.ErrAmountTooLarge,
	points.ErrBalanceOutOfRange,
	conversion.ErrNotPending,
	conversion.ErrNotApproved,
	conversion.ErrInvalidWalletAddress,
	conversion.ErrInvalidTransactionHash,
	conversion.ErrInvalidStatus,
	admin.ErrEmptyReason,
}

// notFoundErrs 404にマッピングするドメインエラー
var notFoundErrs = []error{
	conversion.ErrConversionNotFound,
	points.ErrBalanceNotFound,
	rate.ErrRateNotFound,
	rate.ErrNoActiveRate,
}

// handleError エラーを処理して適切なHTTPレスポンスを返す
func handleError(c echo.Context, err error, logger *otelinfra.Logger) error {
	ctx := c.Request().Context()

	// 変換バリデーションエラー（レート無効・最低値未満）
	var validationErr *rate.ValidationError
	if errors.As(err, &validationErr) {
		logger.Warn(ctx, "Conversion validation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return errorJSON(c, http.StatusBadRequest, validationErr.Error())
	}

	for _, target := range badRequestErrs {
		if errors.Is(err, target) {
			logger.Warn(ctx, "Bad request", map[string]interface{}{
				"error": err.Error(),
			})
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
	}

	// 所有権不一致は401
	if errors.Is(err, conversion.ErrNotOwner) {
		logger.Warn(ctx, "Ownership mismatch", map[string]interface{}{
			"error": err.Error(),
			"path":  c.Request().URL.Path,
		})
		return errorJSON(c, http.StatusUnauthorized, err.Error())
	}

	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			logger.Warn(ctx, "Resource not found", map[string]interface{}{
				"error": err.Error(),
			})
			return errorJSON(c, http.StatusNotFound, err.Error())
		}
	}

	// EchoのHTTPエラー
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		logger.Warn(ctx, "HTTP error", map[string]interface{}{
			"status_code": httpErr.Code,
			"message":     httpErr.Message,
		})
		message := ""
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(httpErr.Code)
		}
		return errorJSON(c, httpErr.Code, message)
	}

	// 予期しないエラーは詳細を隠して汎用メッセージを返す
	logger.Error(ctx, "Internal server error", err, map[string]interface{}{
		"path": c.Request().URL.Path,
	})
	return errorJSON(c, http.StatusInternalServerError, "An unexpected error occurred")
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
	})
}
