package adapters

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.Adapter = &StructurePredictionAdapter{}
)

// StructurePredictionAdapter folds a designed sequence back into a structure.
// Terminal success emits {pdbContent, filename, metadata}.
type StructurePredictionAdapter struct{}

func (a *StructurePredictionAdapter) Type() types.NodeType {
	return types.NodeTypeStructurePrediction
}

func (a *StructurePredictionAdapter) sequence(node *types.PipelineNode, input types.Data) string {
	if seq, ok := node.Config.GetString("sequence"); ok && seq != "" {
		return ResolveTemplate(seq, input, node.Config)
	}
	// upstream sequence design emits a ranked list; fold the best one
	if seqs, ok := input.GetStringSlice("sequences"); ok && len(seqs) > 0 {
		return seqs[0]
	}
	seq, _ := input.GetString("sequence")
	return seq
}

func (a *StructurePredictionAdapter) Validate(node *types.PipelineNode, input types.Data) error {
	if a.sequence(node, input) == "" {
		return types.NewValidationErrorf("node %s: missing sequence for structure prediction", node.ID)
	}
	return nil
}

func (a *StructurePredictionAdapter) Execute(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, input types.Data) (*types.TaskResult, error) {
	payload := types.Data{
		"sequence": a.sequence(node, input),
	}
	if algo, ok := node.Config.GetString("algorithm"); ok && algo != "" {
		payload.Set("algorithm", algo)
	}
	if recycles, ok := node.Config.GetInt("num_recycles"); ok && recycles > 0 {
		payload.Set("num_recycles", recycles)
	}

	outcome, err := runJob(ctx, tc, node, "fold/submit", payload, 10*time.Minute)
	result := taskResultOf(outcome)
	if err != nil {
		return result, errors.Trace(err)
	}
	return result, nil
}
