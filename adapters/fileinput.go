package adapters

import (
	"context"
	"fmt"
	"net/http"

	"github.com/juju/errors"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.Adapter = &FileInputAdapter{}
)

// FileInputAdapter resolves an uploaded PDB file into the pdb_file descriptor
// downstream adapters consume: chains, residue counts, atom count and the
// suggested contigs for structure generation.
type FileInputAdapter struct{}

func (a *FileInputAdapter) Type() types.NodeType {
	return types.NodeTypeFileInput
}

func (a *FileInputAdapter) Validate(node *types.PipelineNode, input types.Data) error {
	filename, _ := input.GetString("filename")
	fileID, _ := input.GetString("file_id")
	fileURL, _ := input.GetString("file_url")
	if filename == "" && fileID == "" && fileURL == "" {
		return types.NewValidationErrorf("node %s: missing filename (set filename, file_id or file_url)", node.ID)
	}
	return nil
}

func (a *FileInputAdapter) Execute(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, input types.Data) (*types.TaskResult, error) {
	filename, _ := input.GetString("filename")
	fileID, _ := input.GetString("file_id")
	fileURL, _ := input.GetString("file_url")

	descriptor := types.Data{
		"type":     "pdb_file",
		"filename": filename,
		"file_id":  fileID,
		"file_url": fileURL,
	}

	// without a backend the descriptor is passed through as configured
	if tc.APIBaseURL == "" {
		return &types.TaskResult{Data: descriptor}, nil
	}

	ref := fileID
	if ref == "" {
		ref = filename
	}
	call, err := doCall(ctx, tc.Client, http.MethodGet, joinURL(tc.APIBaseURL, fmt.Sprintf("files/%s/metadata", ref)), nil, nil)
	result := &types.TaskResult{}
	if call != nil {
		result.Request = call.Request
		result.Response = call.Response
	}
	if err != nil {
		return result, errors.Trace(err)
	}
	if call.StatusCode >= 400 {
		return result, types.NewJobFailedErrorf("node %s: file metadata lookup failed: HTTP %d", node.ID, call.StatusCode)
	}

	// the backend's parse augments the descriptor with chains, residue and
	// atom counts, per-chain residue counts and suggested contigs
	result.Data = descriptor.Merge(call.Body)
	return result, nil
}
