package runtime

import (
	"fmt"
	"strings"

	"github.com/foldflow/pipeline/types"
)

// RenderDOT returns a Graphviz digraph of the pipeline for the host's graph
// canvas, with nodes colored by their execution status.
func RenderDOT(p types.Pipeline) string {
	r := &dotRenderer{sb: &strings.Builder{}}
	return r.generate(p)
}

// RenderDOT renders the orchestrator's current pipeline snapshot.
func (o *Orchestrator) RenderDOT() string {
	return RenderDOT(o.Snapshot())
}

type dotRenderer struct {
	sb *strings.Builder
}

func (d *dotRenderer) generate(p types.Pipeline) string {
	d.write("digraph D {")
	d.write("rankdir=LR")
	for _, node := range p.Nodes {
		label := node.Label
		if label == "" {
			label = node.ID
		}
		d.write("%s [label=%s shape=\"record\"%s]",
			idString(node.ID), quoteString(fmt.Sprintf("%s|%s", label, node.Type)), statusAttr(node))
	}
	for _, edge := range p.Edges {
		d.write("%s -> %s", idString(edge.Source), idString(edge.Target))
	}
	d.write("label=%s", quoteString(p.Name))
	d.write("}")
	return d.sb.String()
}

func statusAttr(node *types.PipelineNode) string {
	color := ""
	switch node.Status {
	case types.NodePending:
		color = "lightgrey"
	case types.NodeRunning:
		color = "yellow"
	case types.NodeSuccess:
		color = "green"
	case types.NodeError:
		color = "red"
	default:
		return ""
	}
	attr := fmt.Sprintf(" style=\"filled\" color=\"%s\"", color)
	if node.Error != "" {
		attr += fmt.Sprintf(" comment=%s", quoteString(node.Error))
	}
	return attr
}

func (d *dotRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
