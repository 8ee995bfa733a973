package analytics

import (
	"context"
	"time"

	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

type logDataCollector struct{}

func NewLogDataCollector() *logDataCollector {
	return &logDataCollector{}
}

func (l *logDataCollector) RecordTierAttempt(ctx context.Context, chain string, tier string, outcome string, latency time.Duration) {
	logger.Info("tier attempt", zap.String("chain", chain), zap.String("tier", tier), zap.String("outcome", outcome), zap.Duration("latency", latency))
}

func (l *logDataCollector) RecordNodeExecution(ctx context.Context, nodeType string, status string, latency time.Duration) {
	logger.Info("node executed", zap.String("nodeType", nodeType), zap.String("status", status), zap.Duration("latency", latency))
}
