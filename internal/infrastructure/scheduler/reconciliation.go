package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvc-server/internal/domain/points"
	obs "cvc-server/internal/infrastructure/observability/otel"
)

// Reconciler 残高と履歴合計の一致を監査するジョブ
// 履歴は追記のみのため、ユーザーごとの増減合計は常に残高と一致するはずで、
// ずれていれば永続化層のどこかで整合性が壊れている
type Reconciler struct {
	balanceRepo points.BalanceRepository
	historyRepo points.HistoryRepository
	logger      *obs.Logger
	metrics     *obs.Metrics
	tracer      trace.Tracer
}

// NewReconciler 新しいReconcilerを作成
func NewReconciler(
	balanceRepo points.BalanceRepository,
	historyRepo points.HistoryRepository,
	logger *obs.Logger,
	metrics *obs.Metrics,
) *Reconciler {
	return &Reconciler{
		balanceRepo: balanceRepo,
		historyRepo: historyRepo,
		logger:      logger,
		metrics:     metrics,
		tracer:      otel.Tracer("reconciler"),
	}
}

// Run 全ユーザーの残高と履歴合計を照合し、不整合件数を返す
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "Reconciler.Run")
	defer span.End()

	userIDs, err := r.historyRepo.ListUserIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	span.SetAttributes(attribute.Int("reconcile.user_count", len(userIDs)))

	mismatches := 0
	for _, userID := range userIDs {
		ok, err := r.reconcileUser(ctx, userID)
		if err != nil {
			// 1ユーザーの失敗でジョブ全体は止めない
			r.logger.Error(ctx, "reconciliation failed for user", err, map[string]interface{}{
				"user_id": userID,
			})
			continue
		}
		if !ok {
			mismatches++
		}
	}

	span.SetAttributes(attribute.Int("reconcile.mismatch_count", mismatches))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("reconciled %d users, %d mismatches", len(userIDs), mismatches))

	r.logger.Info(ctx, "reconciliation completed", map[string]interface{}{
		"user_count":     len(userIDs),
		"mismatch_count": mismatches,
	})

	return mismatches, nil
}

// reconcileUser 1ユーザー分の残高と履歴合計を照合する
func (r *Reconciler) reconcileUser(ctx context.Context, userID string) (bool, error) {
	sum, err := r.historyRepo.SumByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to sum history: %w", err)
	}

	balance, err := r.balanceRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find balance: %w", err)
	}

	if sum != balance.TotalPoints() {
		r.metrics.RecordBalanceMismatch(ctx, userID)
		r.logger.Warn(ctx, "balance mismatch detected", map[string]interface{}{
			"user_id":     userID,
			"balance":     balance.TotalPoints(),
			"history_sum": sum,
			"discrepancy": balance.TotalPoints() - sum,
		})
		return false, nil
	}

	return true, nil
}

// Scheduler 定期ジョブのスケジューラー
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *obs.Logger
}

// NewScheduler 新しいSchedulerを作成
func NewScheduler(reconciler *Reconciler, logger *obs.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		logger:     logger,
	}
}

// Start 指定されたcron式で監査ジョブの定期実行を開始
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if _, err := s.reconciler.Run(ctx); err != nil {
			s.logger.Error(ctx, "scheduled reconciliation failed", err, nil)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop スケジューラーを停止し、実行中のジョブの完了を待つ
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
