package models

import "time"

// WorkflowStatus is the lifecycle state recorded on a WorkflowResult.
type WorkflowStatus string

const (
	// StatusPending and StatusRunning are reserved; synchronous runs go straight
	// to a terminal state.
	StatusPending   WorkflowStatus = "pending"
	StatusRunning   WorkflowStatus = "running"
	StatusCompleted WorkflowStatus = "completed"
	StatusFailed    WorkflowStatus = "failed"
)

// WorkflowType tags which pipeline produced a result.
type WorkflowType string

const (
	WorkflowDataClean  WorkflowType = "data_clean"
	WorkflowEmailParse WorkflowType = "email_parse"
)

// Payload is the structured output of a pipeline. It is implemented only by
// the payload types in this package.
type Payload interface {
	workflowPayload()
}

// WorkflowResult is the envelope returned for every pipeline invocation.
// Exactly one of Result and Error is set.
type WorkflowResult struct {
	WorkflowID   string         `json:"workflow_id"`
	WorkflowType WorkflowType   `json:"workflow_type"`
	Status       WorkflowStatus `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
	Result       Payload        `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}
