package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.Adapter = &CodeAdapter{}
)

// TransformFunc is a host-registered transform the code adapter can run
// against (input, config, node). The returned value becomes the node's
// resultMetadata.
type TransformFunc func(input, config types.Data, node *types.PipelineNode) (types.Data, error)

// CodeAdapter executes a named transform selected by config.transform. The
// host registers transforms at startup; nothing is evaluated dynamically.
type CodeAdapter struct {
	mu         sync.Mutex
	transforms map[string]TransformFunc
}

func NewCodeAdapter() *CodeAdapter {
	return &CodeAdapter{transforms: make(map[string]TransformFunc)}
}

func (a *CodeAdapter) Type() types.NodeType {
	return types.NodeTypeCode
}

func (a *CodeAdapter) RegisterTransform(name string, fn TransformFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transforms[name] = fn
}

func (a *CodeAdapter) transform(node *types.PipelineNode) (TransformFunc, string, bool) {
	name, _ := node.Config.GetString("transform")
	a.mu.Lock()
	defer a.mu.Unlock()
	fn, exists := a.transforms[name]
	return fn, name, exists
}

func (a *CodeAdapter) Validate(node *types.PipelineNode, input types.Data) error {
	if _, name, exists := a.transform(node); !exists {
		if name == "" {
			return types.NewValidationErrorf("node %s: missing transform name", node.ID)
		}
		return types.NewValidationErrorf("node %s: transform %q is not registered", node.ID, name)
	}
	return nil
}

func (a *CodeAdapter) Execute(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, input types.Data) (result *types.TaskResult, retErr error) {
	fn, name, exists := a.transform(node)
	if !exists {
		return nil, types.NewValidationErrorf("node %s: transform %q is not registered", node.ID, name)
	}

	// a panicking transform fails its node, never the engine
	defer func() {
		if r := recover(); r != nil {
			result = nil
			retErr = types.NewJobFailedErrorf("transform %q panicked: %v", name, fmt.Sprint(r))
		}
	}()

	output, err := fn(input.Clone(), node.Config.Clone(), node)
	if err != nil {
		return nil, types.NewJobFailedErrorf("transform %q: %v", name, err)
	}
	return &types.TaskResult{Data: output}, nil
}
