package types

// NodeType names one of the closed set of task kinds a pipeline node can carry.
type NodeType string

const (
	NodeTypeFileInput           NodeType = "file-input"
	NodeTypeStructureGeneration NodeType = "structure-generation"
	NodeTypeSequenceDesign      NodeType = "sequence-design"
	NodeTypeStructurePrediction NodeType = "structure-prediction"
	NodeTypeHTTP                NodeType = "http"
	NodeTypeCode                NodeType = "code"
)

type NodeStatus string

const (
	NodeIdle    NodeStatus = "idle"
	NodePending NodeStatus = "pending"
	NodeRunning NodeStatus = "running"
	NodeSuccess NodeStatus = "success"
	NodeError   NodeStatus = "error"
)

// Terminal reports whether the node will not be touched again without an explicit re-run.
func (s NodeStatus) Terminal() bool {
	return s == NodeSuccess || s == NodeError
}

type PipelineStatus string

const (
	PipelineDraft     PipelineStatus = "draft"
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
)

type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionStopped   SessionStatus = "stopped"
)

// JobState is the normalized status vocabulary consumed from backing job APIs.
type JobState string

const (
	JobAccepted  JobState = "accepted"
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobError     JobState = "error"
	JobNotFound  JobState = "not_found"
)

// NormalizeJobState folds the loose status vocabulary of the backing services
// (success/completed, pending/queued, failed/error) into the poller's states.
func NormalizeJobState(raw string) JobState {
	switch raw {
	case "accepted":
		return JobAccepted
	case "queued", "pending":
		return JobQueued
	case "running", "in_progress":
		return JobRunning
	case "completed", "success", "succeeded", "done":
		return JobCompleted
	case "not_found":
		return JobNotFound
	default:
		return JobError
	}
}
