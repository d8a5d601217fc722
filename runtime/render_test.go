package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foldflow/pipeline/types"
)

func TestRenderDOT(t *testing.T) {
	p := types.NewPipeline("binder design")
	p = p.AddNode(&types.PipelineNode{ID: "input", Type: types.NodeTypeFileInput, Label: "target"})
	p = p.AddNode(&types.PipelineNode{ID: "design", Type: types.NodeTypeStructureGeneration})
	p = p.AddEdge("input", "design")

	status := types.NodeSuccess
	p = p.UpdateNode("input", types.NodeUpdate{Status: &status})
	errStatus := types.NodeError
	msg := "bad contigs"
	p = p.UpdateNode("design", types.NodeUpdate{Status: &errStatus, Error: &msg})

	dot := RenderDOT(p)

	assert.True(t, strings.HasPrefix(dot, "digraph D {"))
	assert.Contains(t, dot, `input [label="target|file-input"`)
	assert.Contains(t, dot, `color="green"`)
	assert.Contains(t, dot, `color="red"`)
	assert.Contains(t, dot, "bad contigs")
	assert.Contains(t, dot, "input -> design")
	assert.Contains(t, dot, `label="binder design"`)
}
