package types

// PipelineNode is one step in the pipeline graph.
type PipelineNode struct {
	ID     string   `json:"id"`
	Type   NodeType `json:"type"`
	Label  string   `json:"label,omitempty"`
	Config Data     `json:"config,omitempty"`

	Status NodeStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	// ResultMetadata is the structured output of the last successful run,
	// in the adapter-specific shape for this node's type.
	ResultMetadata Data `json:"resultMetadata,omitempty"`
}

// NodeUpdate is a partial update applied by Pipeline.UpdateNode. Nil fields are
// left untouched; Config is deep-merged into the existing config map.
type NodeUpdate struct {
	Label          *string
	Config         Data
	Status         *NodeStatus
	Error          *string
	ResultMetadata Data
}

func (n *PipelineNode) clone() *PipelineNode {
	c := *n
	c.Config = n.Config.Clone()
	c.ResultMetadata = n.ResultMetadata.Clone()
	return &c
}

// PipelineEdge is a directed dependency: Target must not start before Source
// reaches terminal success.
type PipelineEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
