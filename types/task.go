package types

import (
	"context"
	"net/http"
	"time"
)

// Doer is the outbound HTTP capability the host injects. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TaskContext carries everything an adapter may need beyond the node itself:
// the owning pipeline snapshot for upstream lookups, the HTTP client, and the
// session id for correlating jobs to a user session.
type TaskContext struct {
	Pipeline  Pipeline
	Client    Doer
	SessionID string

	// APIBaseURL is the root of the bioinformatics job service the built-in
	// adapters talk to. The generic HTTP adapter ignores it.
	APIBaseURL string

	PollInterval time.Duration
	PollTimeout  time.Duration

	// OnProgress, when set, receives per-node progress updates during polling.
	OnProgress func(nodeID, message string, percent float64)
}

// TaskResult is the normalized outcome of one adapter execution. Data becomes
// the node's resultMetadata; Request/Response are attached to the log entry.
type TaskResult struct {
	Data     Data
	Request  *CapturedRequest
	Response *CapturedResponse
}

// Adapter knows how to validate and execute one node type.
type Adapter interface {
	Type() NodeType

	// Validate fails fast, before any network call, when a mandatory field is
	// missing from the resolved input/config. Errors are ValidationError.
	Validate(node *PipelineNode, input Data) error

	Execute(ctx context.Context, tc TaskContext, node *PipelineNode, input Data) (*TaskResult, error)
}

// AdapterRegistry resolves a node's declared type to its adapter.
type AdapterRegistry interface {
	Resolve(typ NodeType) (Adapter, error)
}
