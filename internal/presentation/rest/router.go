package rest

import (
	adminapp "cvc-server/internal/application/admin"
	authapp "cvc-server/internal/application/auth"
	conversionapp "cvc-server/internal/application/conversion"
	"cvc-server/internal/infrastructure/config"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
	"cvc-server/internal/presentation/rest/handler"
	restmiddleware "cvc-server/internal/presentation/rest/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Router REST APIルーター
type Router struct {
	echo              *echo.Echo
	conversionHandler *handler.ConversionHandler
	adminHandler      *handler.AdminHandler
	authHandler       *handler.AuthHandler
}

// NewRouter 新しいRouterを作成
func NewRouter(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	conversionService *conversionapp.ConversionApplicationService,
	adminService *adminapp.AdminApplicationService,
	authService *authapp.AuthApplicationService,
) (*Router, error) {
	e := echo.New()

	// Echoのデフォルトエラーハンドラーを無効化（カスタムエラーハンドラーを使用）
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// エラーハンドリングミドルウェアで処理される
	}

	// ミドルウェアの設定
	setupMiddleware(e, cfg, logger, metrics)

	// ハンドラーの作成
	conversionHandler := handler.NewConversionHandler(conversionService)
	adminHandler := handler.NewAdminHandler(adminService)
	authHandler := handler.NewAuthHandler(authService)

	// ルーティングの設定
	setupRoutes(e, cfg, logger, conversionHandler, adminHandler, authHandler)

	// Swagger UI / ReDoc統合
	SetupSwagger(e)

	return &Router{
		echo:              e,
		conversionHandler: conversionHandler,
		adminHandler:      adminHandler,
		authHandler:       authHandler,
	}, nil
}

// setupMiddleware ミドルウェアを設定
func setupMiddleware(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	// リカバリーミドルウェア
	e.Use(middleware.Recover())

	// CORS設定
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // 本番環境では適切に設定
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// リクエストIDの設定
	e.Use(middleware.RequestID())

	// セキュリティヘッダー
	e.Use(restmiddleware.SecurityHeadersMiddleware())

	// トレーシングミドルウェア
	e.Use(restmiddleware.TracingMiddleware())

	// ログミドルウェア
	e.Use(restmiddleware.LoggingMiddleware(logger))

	// メトリクスミドルウェア
	e.Use(restmiddleware.MetricsMiddleware(metrics))

	// エラーハンドリングミドルウェア
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func setupRoutes(
	e *echo.Echo,
	cfg *config.Config,
	logger *otelinfra.Logger,
	conversionHandler *handler.ConversionHandler,
	adminHandler *handler.AdminHandler,
	authHandler *handler.AuthHandler,
) {
	// API v1グループ
	api := e.Group("/api/v1")

	// トークン発行エンドポイント（認証不要）
	api.POST("/auth/token", authHandler.GenerateToken)

	// JWT認証が必要なユーザーAPIエンドポイント
	authGroup := api.Group("", restmiddleware.AuthMiddleware(&cfg.JWT, logger))

	// 変換関連エンドポイント
	authGroup.POST("/conversions", conversionHandler.CreateConversion)
	authGroup.POST("/conversions/claim", conversionHandler.ClaimCVC)
	authGroup.GET("/conversions/rate", conversionHandler.GetRate)
	authGroup.GET("/conversions/validate", conversionHandler.ValidateConversion)
	authGroup.GET("/me/conversions", conversionHandler.ListMyConversions)

	// ポイント関連エンドポイント
	authGroup.GET("/me/points", conversionHandler.GetMyPoints)
	authGroup.GET("/me/history", conversionHandler.GetMyHistory)

	// APIキー認証が必要な管理APIエンドポイント
	adminGroup := api.Group("/admin", restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger))

	// 参照系エンドポイント
	adminGroup.GET("/conversions", adminHandler.ListConversions)
	adminGroup.GET("/conversions/stats", adminHandler.GetStats)
	adminGroup.GET("/conversions/:conversion_id", adminHandler.GetConversion)
	adminGroup.GET("/rates", adminHandler.ListRates)
	adminGroup.GET("/rates/current", adminHandler.GetCurrentRate)
	adminGroup.GET("/users/:user_id/history", adminHandler.GetUserHistory)

	// 更新系エンドポイントは管理者の識別も必要
	adminIdentity := restmiddleware.AdminIdentityMiddleware(logger)
	adminGroup.POST("/conversions/:conversion_id/approve", adminHandler.ApproveConversion, adminIdentity)
	adminGroup.POST("/conversions/:conversion_id/reject", adminHandler.RejectConversion, adminIdentity)
	adminGroup.POST("/rates", adminHandler.UpdateRate, adminIdentity)

	// ヘルスチェックエンドポイント（認証不要）
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}

// Start サーバーを起動
func (r *Router) Start(address string) error {
	return r.echo.Start(address)
}

// Shutdown サーバーをシャットダウン
func (r *Router) Shutdown() error {
	return r.echo.Close()
}
