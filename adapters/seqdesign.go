package adapters

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.Adapter = &SequenceDesignAdapter{}
)

// SequenceDesignAdapter submits an inverse-folding job that designs sequences
// for a backbone. Terminal success emits {sequences: []string}.
type SequenceDesignAdapter struct{}

func (a *SequenceDesignAdapter) Type() types.NodeType {
	return types.NodeTypeSequenceDesign
}

// backbone locates the PDB content to design against: an upstream structure
// generation output, an uploaded file, or inline config, in that order.
func (a *SequenceDesignAdapter) backbone(node *types.PipelineNode, input types.Data) (source, content string) {
	if pdb, ok := input.GetString("output_pdb"); ok && pdb != "" {
		return "rfdiffusion", pdb
	}
	if pdb, ok := input.GetString("pdbContent"); ok && pdb != "" {
		return "rfdiffusion", pdb
	}
	if fileURL, ok := input.GetString("file_url"); ok && fileURL != "" {
		return "upload", fileURL
	}
	if pdb, ok := node.Config.GetString("pdb_content"); ok && pdb != "" {
		return "inline", pdb
	}
	return "", ""
}

func (a *SequenceDesignAdapter) Validate(node *types.PipelineNode, input types.Data) error {
	if source, _ := a.backbone(node, input); source == "" {
		return types.NewValidationErrorf("node %s: no backbone structure available for sequence design", node.ID)
	}
	return nil
}

func (a *SequenceDesignAdapter) Execute(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, input types.Data) (*types.TaskResult, error) {
	source, content := a.backbone(node, input)
	payload := types.Data{
		"backbone_source": source,
	}
	switch source {
	case "upload":
		payload.Set("file_url", content)
	default:
		payload.Set("pdb_content", content)
	}
	if n, ok := node.Config.GetInt("num_sequences"); ok && n > 0 {
		payload.Set("num_sequences", n)
	}
	if temp, ok := node.Config.GetFloat64("temperature"); ok && temp > 0 {
		payload.Set("temperature", temp)
	}

	outcome, err := runJob(ctx, tc, node, "proteinmpnn/submit", payload, 5*time.Minute)
	result := taskResultOf(outcome)
	if err != nil {
		return result, errors.Trace(err)
	}

	// normalize so downstream prediction nodes always find sequences
	if result.Data != nil {
		if _, ok := result.Data.GetStringSlice("sequences"); !ok {
			if seq, ok := result.Data.GetString("sequence"); ok && seq != "" {
				result.Data.Set("sequences", []string{seq})
			}
		}
	}
	return result, nil
}
