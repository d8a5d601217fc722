package adapters

import (
	"context"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/foldflow/pipeline/types"
)

func TestCodeAdapterRunsRegisteredTransform(t *testing.T) {
	a := NewCodeAdapter()
	a.RegisterTransform("best_sequence", func(input, config types.Data, node *types.PipelineNode) (types.Data, error) {
		seqs, _ := input.GetStringSlice("sequences")
		prefix, _ := config.GetString("prefix")
		return types.Data{"sequence": prefix + seqs[0]}, nil
	})

	node := &types.PipelineNode{
		ID:     "pick",
		Type:   types.NodeTypeCode,
		Config: types.Data{"transform": "best_sequence", "prefix": "M"},
	}
	input := types.Data{"sequences": []any{"KVL", "AAA"}}

	assert.Nil(t, a.Validate(node, input))
	result, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, input)
	assert.Nil(t, err)
	seq, _ := result.Data.GetString("sequence")
	assert.Equal(t, "MKVL", seq)
}

func TestCodeAdapterValidation(t *testing.T) {
	a := NewCodeAdapter()

	node := &types.PipelineNode{ID: "pick", Type: types.NodeTypeCode, Config: types.Data{}}
	err := a.Validate(node, types.Data{})
	assert.True(t, types.IsValidationError(err))
	assert.Contains(t, err.Error(), "missing transform")

	node.Config = types.Data{"transform": "unknown"}
	err = a.Validate(node, types.Data{})
	assert.True(t, types.IsValidationError(err))
	assert.Contains(t, err.Error(), "not registered")
}

func TestCodeAdapterErrorAndPanic(t *testing.T) {
	a := NewCodeAdapter()
	a.RegisterTransform("failing", func(input, config types.Data, node *types.PipelineNode) (types.Data, error) {
		return nil, errors.New("no sequences to pick from")
	})
	a.RegisterTransform("panicking", func(input, config types.Data, node *types.PipelineNode) (types.Data, error) {
		var seqs []string
		return types.Data{"first": seqs[0]}, nil
	})

	node := &types.PipelineNode{ID: "pick", Type: types.NodeTypeCode, Config: types.Data{"transform": "failing"}}
	_, err := a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, types.Data{})
	assert.True(t, types.IsJobFailedError(err))
	assert.Contains(t, err.Error(), "no sequences")

	node.Config = types.Data{"transform": "panicking"}
	_, err = a.Execute(context.Background(), testTaskContext(types.Pipeline{}), node, types.Data{})
	assert.True(t, types.IsJobFailedError(err))
	assert.True(t, strings.Contains(err.Error(), "panicked"))
}

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry()

	for _, typ := range []types.NodeType{
		types.NodeTypeFileInput,
		types.NodeTypeStructureGeneration,
		types.NodeTypeSequenceDesign,
		types.NodeTypeStructurePrediction,
		types.NodeTypeHTTP,
		types.NodeTypeCode,
	} {
		adapter, err := r.Resolve(typ)
		assert.Nil(t, err, "type %s", typ)
		assert.Equal(t, typ, adapter.Type())
	}

	_, err := r.Resolve("quantum-annealing")
	assert.True(t, types.IsUnsupportedNodeTypeError(err))

	assert.True(t, r.RegisterTransform("noop", func(input, config types.Data, node *types.PipelineNode) (types.Data, error) {
		return input, nil
	}))
}
