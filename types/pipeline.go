package types

import (
	"time"

	"dario.cat/mergo"
	log "github.com/sirupsen/logrus"
)

// Pipeline owns an ordered set of nodes and a set of edges. All mutators are
// pure: they return a new Pipeline value and never touch the receiver, so
// concurrent readers holding an old snapshot never observe a torn update.
type Pipeline struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name,omitempty"`
	Status PipelineStatus `json:"status"`

	Nodes []*PipelineNode `json:"nodes"`
	Edges []PipelineEdge  `json:"edges"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func NewPipeline(name string) Pipeline {
	now := time.Now()
	return Pipeline{Name: name, Status: PipelineDraft, CreatedAt: now, UpdatedAt: now}
}

func (p Pipeline) clone() Pipeline {
	c := p
	c.Nodes = make([]*PipelineNode, len(p.Nodes))
	for i, n := range p.Nodes {
		c.Nodes[i] = n.clone()
	}
	c.Edges = make([]PipelineEdge, len(p.Edges))
	copy(c.Edges, p.Edges)
	return c
}

func (p Pipeline) Node(id string) (*PipelineNode, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Upstreams returns the source nodes of every edge pointing at id, in original
// node order so input resolution is deterministic.
func (p Pipeline) Upstreams(id string) []*PipelineNode {
	sources := make(map[string]bool)
	for _, e := range p.Edges {
		if e.Target == id {
			sources[e.Source] = true
		}
	}
	ups := make([]*PipelineNode, 0, len(sources))
	for _, n := range p.Nodes {
		if sources[n.ID] {
			ups = append(ups, n)
		}
	}
	return ups
}

// ResolveInput builds the task input view for a node: the merged resultMetadata
// of its immediate upstream neighbors (in original node order, later upstreams
// layering over earlier ones), or the node's own config when no upstream exists.
func (p Pipeline) ResolveInput(id string) Data {
	node, ok := p.Node(id)
	if !ok {
		return Data{}
	}
	ups := p.Upstreams(id)
	if len(ups) == 0 {
		return node.Config.Clone()
	}
	input := Data{}
	for _, up := range ups {
		input = input.Merge(up.ResultMetadata)
	}
	return input
}

// AddNode appends the node. A node with a duplicate id replaces nothing and the
// pipeline is returned unchanged.
func (p Pipeline) AddNode(node *PipelineNode) Pipeline {
	if _, exists := p.Node(node.ID); exists {
		log.Warnf("pipeline %s: node %s already exists, add ignored", p.Name, node.ID)
		return p
	}
	c := p.clone()
	n := node.clone()
	if n.Status == "" {
		n.Status = NodeIdle
	}
	c.Nodes = append(c.Nodes, n)
	c.UpdatedAt = time.Now()
	return c
}

// UpdateNode shallow-merges top-level fields and deep-merges the config map.
// An unknown id is a no-op, not an error: callers racing a deletion do not need
// to re-check existence.
func (p Pipeline) UpdateNode(id string, update NodeUpdate) Pipeline {
	if _, exists := p.Node(id); !exists {
		return p
	}
	c := p.clone()
	n, _ := c.Node(id)
	if update.Label != nil {
		n.Label = *update.Label
	}
	if update.Status != nil {
		n.Status = *update.Status
	}
	if update.Error != nil {
		n.Error = *update.Error
	}
	if update.ResultMetadata != nil {
		n.ResultMetadata = update.ResultMetadata.Clone()
	}
	if update.Config != nil {
		if n.Config == nil {
			n.Config = Data{}
		}
		merged := map[string]any(n.Config)
		if err := mergo.Merge(&merged, map[string]any(update.Config), mergo.WithOverride); err != nil {
			log.Errorf("pipeline %s: merge config of node %s: %v", p.Name, id, err)
		}
		n.Config = Data(merged)
	}
	c.UpdatedAt = time.Now()
	return c
}

// DeleteNode removes the node and every edge touching it.
func (p Pipeline) DeleteNode(id string) Pipeline {
	if _, exists := p.Node(id); !exists {
		return p
	}
	c := p.clone()
	nodes := c.Nodes[:0]
	for _, n := range c.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	c.Nodes = nodes
	edges := c.Edges[:0]
	for _, e := range c.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	c.Edges = edges
	c.UpdatedAt = time.Now()
	return c
}

// AddEdge adds a directed dependency. Self-loops, dangling endpoints, and exact
// duplicates are ignored.
func (p Pipeline) AddEdge(source, target string) Pipeline {
	if source == target {
		log.Warnf("pipeline %s: self-loop %s rejected", p.Name, source)
		return p
	}
	if _, ok := p.Node(source); !ok {
		log.Warnf("pipeline %s: edge source %s not found", p.Name, source)
		return p
	}
	if _, ok := p.Node(target); !ok {
		log.Warnf("pipeline %s: edge target %s not found", p.Name, target)
		return p
	}
	for _, e := range p.Edges {
		if e.Source == source && e.Target == target {
			return p
		}
	}
	c := p.clone()
	c.Edges = append(c.Edges, PipelineEdge{Source: source, Target: target})
	c.UpdatedAt = time.Now()
	return c
}

func (p Pipeline) DeleteEdge(source, target string) Pipeline {
	c := p.clone()
	edges := c.Edges[:0]
	for _, e := range c.Edges {
		if e.Source != source || e.Target != target {
			edges = append(edges, e)
		}
	}
	c.Edges = edges
	c.UpdatedAt = time.Now()
	return c
}

// WithStatus returns a copy with the pipeline status replaced.
func (p Pipeline) WithStatus(status PipelineStatus) Pipeline {
	c := p.clone()
	c.Status = status
	c.UpdatedAt = time.Now()
	return c
}
