package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/ai"
	"github.com/mohitkumar/canvasflow/analytics"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/storage"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/transcribe"
	"github.com/mohitkumar/canvasflow/webpage"
	"github.com/mohitkumar/canvasflow/youtube"
	"go.uber.org/zap"
)

var ErrNodeNotFound = errors.New("node not found")

type Options struct {
	ForceExecution bool   `json:"forceExecution"`
	UserID         string `json:"userId"`
}

type YouTubeTranscriber interface {
	Transcribe(ctx context.Context, url string, opts youtube.TranscribeOptions) (model.TranscriptionResult, error)
}

type SocialFetcher interface {
	Fetch(ctx context.Context, url string, userId string) (*social.FetchResult, error)
}

type AudioTranscriber interface {
	Available() bool
	TranscribeURL(ctx context.Context, audioURL string) (*transcribe.Result, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*webpage.Page, error)
}

type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) (*webpage.Media, error)
}

// Dependencies are the services node branches call. Any of them may be
// nil; a branch whose service is missing fails with a configuration error.
type Dependencies struct {
	YouTube   YouTubeTranscriber
	Social    SocialFetcher
	Voice     AudioTranscriber
	Generator ai.Generator
	Images    ai.ImageGenerator
	Uploader  storage.Uploader
	Pages     PageFetcher
	Media     MediaFetcher
}

type NodeExecutor struct {
	deps       Dependencies
	staleAfter time.Duration
	now        func() time.Time
}

// NewNodeExecutor returns an executor that treats a successful output older
// than staleAfter as stale. Zero keeps outputs fresh forever.
func NewNodeExecutor(deps Dependencies, staleAfter time.Duration) *NodeExecutor {
	return &NodeExecutor{
		deps:       deps,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

type panicError struct {
	value any
	stack string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (e *NodeExecutor) fresh(node *model.WorkflowNode) bool {
	base := node.Data.Base()
	if base.Status != model.STATUS_SUCCESS || base.ExecutedAt == nil {
		return false
	}
	return e.staleAfter <= 0 || e.now().Sub(*base.ExecutedAt) < e.staleAfter
}

// Execute runs one node and writes its output back into the workflow. It
// never panics; every failure is reported in the returned result.
func (e *NodeExecutor) Execute(ctx context.Context, nodeId string, wf *model.Workflow, opts Options) (result model.NodeExecutionResult) {
	start := e.now()
	result.NodeID = nodeId
	nodeType := "unknown"
	defer func() {
		latency := e.now().Sub(start)
		result.DurationMs = latency.Milliseconds()
		analytics.RecordNodeExecution(ctx, nodeType, string(result.Status), latency)
	}()

	node, ok := wf.Node(nodeId)
	if !ok || node.Data == nil {
		result.Status = model.EXECUTION_ERROR
		result.Error = &model.ExecutionError{Message: fmt.Sprintf("%v: %s", ErrNodeNotFound, nodeId)}
		return result
	}
	nodeType = string(node.Type)

	if node.Disabled {
		result.Success = true
		result.Status = model.EXECUTION_BYPASSED
		result.Output = node.Data
		return result
	}
	if !opts.ForceExecution && e.fresh(node) {
		result.Success = true
		result.Cached = true
		result.Status = model.EXECUTION_CACHED
		result.Output = node.Data
		return result
	}

	node.Data.Base().Status = model.STATUS_LOADING
	err := e.safeDispatch(ctx, wf, node, opts)
	if err != nil {
		node.Data.Base().MarkError(err)
		logger.Warn("node execution failed", zap.String("node", nodeId), zap.String("type", nodeType), zap.Error(err))
		result.Status = model.EXECUTION_ERROR
		result.Error = toExecutionError(err)
		result.Output = node.Data
		return result
	}
	node.Data.Base().MarkSuccess(e.now())
	result.Success = true
	result.Status = model.EXECUTION_SUCCESS
	result.Output = node.Data
	logger.Info("node executed", zap.String("node", nodeId), zap.String("type", nodeType))
	return result
}

func (e *NodeExecutor) safeDispatch(ctx context.Context, wf *model.Workflow, node *model.WorkflowNode, opts Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()
	return e.dispatch(ctx, wf, node, opts)
}

func toExecutionError(err error) *model.ExecutionError {
	execErr := &model.ExecutionError{Message: err.Error()}
	var p *panicError
	if errors.As(err, &p) {
		execErr.Stack = p.stack
		return execErr
	}
	var chainErr *tier.ChainError
	if errors.As(err, &chainErr) {
		lines := make([]string, 0, len(chainErr.Failures))
		for _, f := range chainErr.Failures {
			lines = append(lines, fmt.Sprintf("%s: %v", f.Tier, f.Err))
		}
		if len(lines) == 0 {
			lines = append(lines, tier.ErrNoTierAvailable.Error())
		}
		execErr.Details = strings.Join(lines, "\n")
		return execErr
	}
	var retryErr *retry.Error
	if errors.As(err, &retryErr) {
		execErr.Details = fmt.Sprintf("%s gave up after %d attempt(s)", retryErr.Context, retryErr.Attempts)
	}
	return execErr
}
