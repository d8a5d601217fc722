package runtime

import (
	"github.com/foldflow/pipeline/types"
)

// TopologicalSort computes a deterministic execution order for the graph.
// Kahn's algorithm with ties broken by original node slice order, so two runs
// of the same graph always produce the same order; isolated nodes come first
// among their zero-in-degree peers. A cycle yields GraphCycleError.
func TopologicalSort(pipelineName string, nodes []*types.PipelineNode, edges []types.PipelineEdge) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		indegree[n.ID] = 0
	}
	for _, e := range edges {
		// edges referencing deleted nodes carry no dependency
		if _, ok := indegree[e.Source]; !ok {
			continue
		}
		if _, ok := indegree[e.Target]; !ok {
			continue
		}
		indegree[e.Target]++
	}

	order := make([]string, 0, len(nodes))
	removed := make(map[string]bool, len(nodes))

	for len(order) < len(nodes) {
		progressed := false
		for _, n := range nodes {
			if removed[n.ID] || indegree[n.ID] != 0 {
				continue
			}
			removed[n.ID] = true
			order = append(order, n.ID)
			progressed = true

			for _, e := range edges {
				if e.Source != n.ID {
					continue
				}
				if _, ok := indegree[e.Target]; ok && !removed[e.Target] {
					indegree[e.Target]--
				}
			}
		}
		if !progressed {
			remaining := len(nodes) - len(order)
			return nil, types.NewGraphCycleErrorf(pipelineName,
				"pipeline %q contains a cycle involving %d node(s)", pipelineName, remaining)
		}
	}
	return order, nil
}
