package types

import "time"

// CapturedRequest records the outbound call an adapter made, for diagnosis in
// the UI when a node fails.
type CapturedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

type CapturedResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// ExecutionLogEntry is one record per node per execution attempt. It is created
// when the node transitions to running and updated in place as the node reaches
// a terminal state; the label and type are denormalized so history survives
// node deletion.
type ExecutionLogEntry struct {
	NodeID    string   `json:"nodeId"`
	NodeLabel string   `json:"nodeLabel,omitempty"`
	NodeType  NodeType `json:"nodeType,omitempty"`

	Status      NodeStatus    `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`

	Request  *CapturedRequest  `json:"request,omitempty"`
	Response *CapturedResponse `json:"response,omitempty"`

	Input  Data `json:"input,omitempty"`
	Output Data `json:"output,omitempty"`
}

// LogUpdate is a partial in-place update of an open log entry.
type LogUpdate struct {
	Status      *NodeStatus
	CompletedAt *time.Time
	Error       *string
	Request     *CapturedRequest
	Response    *CapturedResponse
	Output      Data
}

// ExecutionSession bounds the log entries of one end-to-end run attempt.
type ExecutionSession struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`

	Entries []*ExecutionLogEntry `json:"entries"`
}
