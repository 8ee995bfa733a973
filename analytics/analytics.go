package analytics

import (
	"context"
	"time"
)

type DataCollectorConfig struct {
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_DATA_COLLECTOR DataCollectorType = "LOG"
const OPENCENSUS_DATA_COLLECTOR DataCollectorType = "OPENCENSUS"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP"

const OUTCOME_SUCCESS = "success"
const OUTCOME_FAILURE = "failure"
const OUTCOME_SKIPPED = "skipped"

// PipelineDataCollector receives one record per tier attempt and per node execution.
type PipelineDataCollector interface {
	RecordTierAttempt(ctx context.Context, chain string, tier string, outcome string, latency time.Duration)
	RecordNodeExecution(ctx context.Context, nodeType string, status string, latency time.Duration)
}

var pipelineCollector PipelineDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_DATA_COLLECTOR:
		pipelineCollector = NewLogDataCollector()
	case OPENCENSUS_DATA_COLLECTOR:
		c, err := NewOpenCensusCollector()
		if err != nil {
			return err
		}
		pipelineCollector = c
	default:
		pipelineCollector = noopCollector{}
	}
	return nil
}

func SetCollector(c PipelineDataCollector) {
	if c == nil {
		c = noopCollector{}
	}
	pipelineCollector = c
}

func RecordTierAttempt(ctx context.Context, chain string, tier string, outcome string, latency time.Duration) {
	pipelineCollector.RecordTierAttempt(ctx, chain, tier, outcome, latency)
}

func RecordNodeExecution(ctx context.Context, nodeType string, status string, latency time.Duration) {
	pipelineCollector.RecordNodeExecution(ctx, nodeType, status, latency)
}

type noopCollector struct{}

func (noopCollector) RecordTierAttempt(context.Context, string, string, string, time.Duration) {}

func (noopCollector) RecordNodeExecution(context.Context, string, string, time.Duration) {}
