package analytics

import (
	"context"
	"time"

	"github.com/mohitkumar/canvasflow/logger"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
)

var (
	tierAttempts   = stats.Int64("canvasflow/tier_attempts", "Fetch tier attempts", stats.UnitDimensionless)
	tierLatency    = stats.Float64("canvasflow/tier_latency_ms", "Fetch tier latency", stats.UnitMilliseconds)
	nodeExecutions = stats.Float64("canvasflow/node_execution_ms", "Node execution latency", stats.UnitMilliseconds)

	keyChain    = tag.MustNewKey("chain")
	keyTier     = tag.MustNewKey("tier")
	keyOutcome  = tag.MustNewKey("outcome")
	keyNodeType = tag.MustNewKey("node_type")
	keyStatus   = tag.MustNewKey("status")

	latencyBuckets = view.Distribution(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000)

	Views = []*view.View{
		{
			Name:        "canvasflow/tier_attempts",
			Measure:     tierAttempts,
			Description: "Count of fetch tier attempts by chain, tier and outcome",
			TagKeys:     []tag.Key{keyChain, keyTier, keyOutcome},
			Aggregation: view.Count(),
		},
		{
			Name:        "canvasflow/tier_latency_ms",
			Measure:     tierLatency,
			Description: "Distribution of fetch tier latency",
			TagKeys:     []tag.Key{keyChain, keyTier, keyOutcome},
			Aggregation: latencyBuckets,
		},
		{
			Name:        "canvasflow/node_executions",
			Measure:     nodeExecutions,
			Description: "Distribution of node execution latency by type and status",
			TagKeys:     []tag.Key{keyNodeType, keyStatus},
			Aggregation: latencyBuckets,
		},
	}
)

type openCensusCollector struct{}

func NewOpenCensusCollector() (*openCensusCollector, error) {
	if err := view.Register(Views...); err != nil {
		return nil, err
	}
	return &openCensusCollector{}, nil
}

func (o *openCensusCollector) RecordTierAttempt(ctx context.Context, chain string, tier string, outcome string, latency time.Duration) {
	err := stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(keyChain, chain), tag.Upsert(keyTier, tier), tag.Upsert(keyOutcome, outcome)},
		tierAttempts.M(1), tierLatency.M(float64(latency.Milliseconds())))
	if err != nil {
		logger.Debug("error recording tier attempt", zap.Error(err))
	}
}

func (o *openCensusCollector) RecordNodeExecution(ctx context.Context, nodeType string, status string, latency time.Duration) {
	err := stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(keyNodeType, nodeType), tag.Upsert(keyStatus, status)},
		nodeExecutions.M(float64(latency.Milliseconds())))
	if err != nil {
		logger.Debug("error recording node execution", zap.Error(err))
	}
}
