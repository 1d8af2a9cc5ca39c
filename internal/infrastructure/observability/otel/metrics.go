package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics メトリクス定義
type Metrics struct {
	// 変換リクエスト数
	ConversionCount metric.Int64Counter

	// 変換されたポイント総数
	PointsConverted metric.Int64Counter

	// ポイント残高の分布
	PointsBalance metric.Int64Gauge

	// 残高と履歴合計の不整合件数
	BalanceMismatchCount metric.Int64Counter

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー率
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	conversionCount, err := meter.Int64Counter(
		"conversions_total",
		metric.WithDescription("Total number of conversion requests by status"),
	)
	if err != nil {
		return nil, err
	}

	pointsConverted, err := meter.Int64Counter(
		"points_converted_total",
		metric.WithDescription("Total number of points converted to CVC"),
	)
	if err != nil {
		return nil, err
	}

	pointsBalance, err := meter.Int64Gauge(
		"points_balance",
		metric.WithDescription("Points balance per user"),
	)
	if err != nil {
		return nil, err
	}

	balanceMismatchCount, err := meter.Int64Counter(
		"balance_mismatch_total",
		metric.WithDescription("Total number of balance/history mismatches detected"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of requests"),
	)
	if err != nil {
		return nil, err
	}

	responseTime, err := meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ConversionCount:      conversionCount,
		PointsConverted:      pointsConverted,
		PointsBalance:        pointsBalance,
		BalanceMismatchCount: balanceMismatchCount,
		RequestCount:         requestCount,
		ResponseTime:         responseTime,
		ErrorCount:           errorCount,
	}, nil
}

// RecordConversion 変換リクエストの状態遷移を記録
func (m *Metrics) RecordConversion(ctx context.Context, status string) {
	m.ConversionCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordPointsConverted 変換されたポイント数を記録
func (m *Metrics) RecordPointsConverted(ctx context.Context, points int64) {
	m.PointsConverted.Add(ctx, points)
}

// RecordPointsBalance ポイント残高を記録
func (m *Metrics) RecordPointsBalance(ctx context.Context, userID string, balance int64) {
	m.PointsBalance.Record(ctx, balance,
		metric.WithAttributes(
			attribute.String("user_id", userID),
		),
	)
}

// RecordBalanceMismatch 残高と履歴合計の不整合を記録
func (m *Metrics) RecordBalanceMismatch(ctx context.Context, userID string) {
	m.BalanceMismatchCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("user_id", userID),
		),
	)
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
