package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse 成功レスポンスエンベロープ
// @Description 成功レスポンスエンベロープ
type SuccessResponse struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty" example:"Conversion request created"`
}

// ErrorResponse エラーレスポンスエンベロープ
// @Description エラーレスポンスエンベロープ
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"Insufficient points balance"`
}

// PaginationModel ページネーション情報
// @Description ページネーション情報
type PaginationModel struct {
	Page       int `json:"page" example:"1"`
	Limit      int `json:"limit" example:"20"`
	Total      int `json:"total" example:"42"`
	TotalPages int `json:"total_pages" example:"3"`
}

func successJSON(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

func successJSONWithMessage(c echo.Context, data interface{}, message string) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
