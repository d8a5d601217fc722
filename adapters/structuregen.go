package adapters

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.Adapter = &StructureGenerationAdapter{}
)

// StructureGenerationAdapter submits a diffusion-style backbone design job.
// Terminal success emits {output_pdb|pdbContent, filename, filepath}.
type StructureGenerationAdapter struct{}

func (a *StructureGenerationAdapter) Type() types.NodeType {
	return types.NodeTypeStructureGeneration
}

func (a *StructureGenerationAdapter) contigs(node *types.PipelineNode, input types.Data) string {
	if contigs, ok := node.Config.GetString("contigs"); ok && contigs != "" {
		return ResolveTemplate(contigs, input, node.Config)
	}
	// an upstream file-input node suggests contigs from the parsed structure
	contigs, _ := input.GetString("suggested_contigs")
	return contigs
}

func (a *StructureGenerationAdapter) Validate(node *types.PipelineNode, input types.Data) error {
	if a.contigs(node, input) == "" {
		return types.NewValidationErrorf("node %s: missing contigs for structure generation", node.ID)
	}
	return nil
}

func (a *StructureGenerationAdapter) Execute(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, input types.Data) (*types.TaskResult, error) {
	payload := types.Data{
		"contigs": a.contigs(node, input),
	}
	if hotspots, ok := node.Config.GetString("hotspot_res"); ok && hotspots != "" {
		payload.Set("hotspot_res", ResolveTemplate(hotspots, input, node.Config))
	}
	if steps, ok := node.Config.GetInt("diffusion_steps"); ok && steps > 0 {
		payload.Set("diffusion_steps", steps)
	}
	if designs, ok := node.Config.GetInt("num_designs"); ok && designs > 0 {
		payload.Set("num_designs", designs)
	}
	if pdbID, ok := node.Config.GetString("pdb_id"); ok && pdbID != "" {
		payload.Set("pdb_id", pdbID)
	} else if fileID, ok := input.GetString("file_id"); ok && fileID != "" {
		payload.Set("pdb_id", fileID)
	}

	outcome, err := runJob(ctx, tc, node, "rfdiffusion/submit", payload, 10*time.Minute)
	result := taskResultOf(outcome)
	if err != nil {
		return result, errors.Trace(err)
	}
	return result, nil
}

func taskResultOf(outcome *jobOutcome) *types.TaskResult {
	if outcome == nil {
		return nil
	}
	return &types.TaskResult{Data: outcome.Data, Request: outcome.Request, Response: outcome.Response}
}
