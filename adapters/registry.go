package adapters

import (
	"sync"

	"github.com/foldflow/pipeline/types"
)

var (
	_ types.AdapterRegistry = &Registry{}
)

// Registry maps a node's declared type to the adapter that knows how to build
// its request and interpret its response.
type Registry struct {
	mu       sync.Mutex
	adapters map[types.NodeType]types.Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[types.NodeType]types.Adapter)}
}

// NewDefaultRegistry returns a registry with all built-in adapters wired.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&FileInputAdapter{})
	r.Register(&StructureGenerationAdapter{})
	r.Register(&SequenceDesignAdapter{})
	r.Register(&StructurePredictionAdapter{})
	r.Register(&HTTPAdapter{})
	r.Register(NewCodeAdapter())
	return r
}

// Register adds or replaces the adapter for its declared type.
func (r *Registry) Register(adapter types.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Type()] = adapter
}

func (r *Registry) Resolve(typ types.NodeType) (types.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	adapter, exists := r.adapters[typ]
	if !exists {
		return nil, types.NewUnsupportedNodeTypeError(typ)
	}
	return adapter, nil
}

// RegisterTransform exposes the code adapter's transform table when the
// registry carries one, so hosts can plug named transforms through the
// default registry.
func (r *Registry) RegisterTransform(name string, fn TransformFunc) bool {
	adapter, err := r.Resolve(types.NodeTypeCode)
	if err != nil {
		return false
	}
	code, ok := adapter.(*CodeAdapter)
	if !ok {
		return false
	}
	code.RegisterTransform(name, fn)
	return true
}
