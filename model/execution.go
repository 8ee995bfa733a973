package model

type ExecutionStatus string

const EXECUTION_SUCCESS ExecutionStatus = "success"
const EXECUTION_ERROR ExecutionStatus = "error"
const EXECUTION_BYPASSED ExecutionStatus = "bypassed"
const EXECUTION_CACHED ExecutionStatus = "cached"

type ExecutionError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

type NodeExecutionResult struct {
	NodeID     string          `json:"nodeId"`
	Success    bool            `json:"success"`
	Status     ExecutionStatus `json:"status"`
	Cached     bool            `json:"cached"`
	Output     NodeData        `json:"output,omitempty"`
	Error      *ExecutionError `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
}
