package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminapp "cvc-server/internal/application/admin"
	authapp "cvc-server/internal/application/auth"
	conversionapp "cvc-server/internal/application/conversion"
	"cvc-server/internal/domain/rate"
	"cvc-server/internal/domain/service"
	"cvc-server/internal/infrastructure/config"
	otelinfra "cvc-server/internal/infrastructure/observability/otel"
	"cvc-server/internal/infrastructure/persistence/mysql"
	"cvc-server/internal/infrastructure/scheduler"
	grpcserver "cvc-server/internal/presentation/grpc"
	"cvc-server/internal/presentation/rest"

	"github.com/google/uuid"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenTelemetryの初期化
	tracerShutdown, err := otelinfra.InitTracer(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	meterShutdown, err := otelinfra.InitMeter(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize meter: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown meter: %v", err)
		}
	}()

	// ロガーとメトリクスの初期化
	tracer := otelinfra.Tracer("cvc-server")
	logger := otelinfra.NewLogger(tracer)
	metrics, err := otelinfra.NewMetrics("cvc-server")
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	// データベース接続の初期化
	db, err := mysql.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// リポジトリの初期化
	conversionRepo := mysql.NewConversionRepository(db)
	rateRepo := mysql.NewConversionRateRepository(db)
	balanceRepo := mysql.NewBalanceRepository(db)
	historyRepo := mysql.NewHistoryRepository(db)

	// トランザクションマネージャーの初期化
	txManager := mysql.NewTransactionManager(db)

	// 有効なレートが1件もない場合は設定値から初期レートを投入
	if err := ensureDefaultRate(context.Background(), cfg, rateRepo); err != nil {
		log.Fatalf("Failed to ensure default conversion rate: %v", err)
	}

	// ドメインサービスの初期化
	conversionService := service.NewConversionService(rateRepo, balanceRepo)

	// アプリケーションサービスの初期化
	conversionAppService := conversionapp.NewConversionApplicationService(
		conversionRepo,
		balanceRepo,
		historyRepo,
		txManager,
		conversionService,
		cfg.Network,
		logger,
		metrics,
	)

	adminAppService := adminapp.NewAdminApplicationService(
		conversionRepo,
		rateRepo,
		balanceRepo,
		historyRepo,
		txManager,
		logger,
		metrics,
	)

	authAppService := authapp.NewAuthApplicationService(&cfg.JWT, logger)

	// REST APIルーターの初期化
	router, err := rest.NewRouter(
		cfg,
		logger,
		metrics,
		conversionAppService,
		adminAppService,
		authAppService,
	)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}

	// gRPCサーバーの初期化（ヘルスチェック用）
	grpcSrv, err := grpcserver.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create gRPC server: %v", err)
	}

	// 残高・履歴の整合性監査ジョブ
	reconciler := scheduler.NewReconciler(balanceRepo, historyRepo, logger, metrics)
	reconcileScheduler := scheduler.NewScheduler(reconciler, logger)
	if cfg.Scheduler.Enabled {
		if err := reconcileScheduler.Start(cfg.Scheduler.ReconciliationSpec); err != nil {
			log.Fatalf("Failed to start reconciliation scheduler: %v", err)
		}
	}

	// サーバーアドレスの設定
	address := fmt.Sprintf(":%d", cfg.Server.Port)

	// グレースフルシャットダウンの設定
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// REST APIサーバーを別ゴルーチンで起動
	go func() {
		log.Printf("REST API server starting on %s", address)
		if err := router.Start(address); err != nil {
			log.Printf("REST API server error: %v", err)
		}
	}()

	// gRPCサーバーを別ゴルーチンで起動
	go func() {
		log.Printf("gRPC server starting on port %d", grpcSrv.Port())
		if err := grpcSrv.Start(); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// シグナルを待機
	<-quit
	log.Println("Shutting down servers...")

	// グレースフルシャットダウン
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// スケジューラーの停止（実行中のジョブの完了を待つ）
	if cfg.Scheduler.Enabled {
		<-reconcileScheduler.Stop().Done()
	}

	// REST APIサーバーのシャットダウン
	if err := router.Shutdown(); err != nil {
		log.Printf("Error shutting down REST API server: %v", err)
	}

	// gRPCサーバーのシャットダウン
	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		log.Printf("Error shutting down gRPC server: %v", err)
	}

	log.Println("Servers stopped")
}

// ensureDefaultRate 有効なレートが存在しない場合、設定値から初期レートを作成する
func ensureDefaultRate(ctx context.Context, cfg *config.Config, rateRepo rate.ConversionRateRepository) error {
	if !cfg.DefaultRate.Active {
		return nil
	}

	_, err := rateRepo.FindActive(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, rate.ErrNoActiveRate) {
		return err
	}

	defaultRate, err := rate.NewConversionRate(
		fmt.Sprintf("rate_%s", uuid.NewString()),
		cfg.DefaultRate.PointsPerCVC,
		cfg.DefaultRate.MinimumPoints,
		cfg.DefaultRate.MinimumCVC,
		cfg.DefaultRate.ClaimFeeETH,
		true,
		time.Now(),
		"system",
	)
	if err != nil {
		return err
	}

	log.Printf("Seeding default conversion rate: %d points per CVC", cfg.DefaultRate.PointsPerCVC)
	return rateRepo.Create(ctx, defaultRate)
}
