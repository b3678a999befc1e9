package topology

import (
	"fmt"
	"math/rand"
)

const (
	DefaultNodeCount = 15
	DefaultEdgeDraws = 25
)

// BuildInfra creates nodes Service1..ServiceN and draws edgeDraws random
// dependencies between two distinct nodes. Repeated draws of the same pair
// collapse, so the edge count can be lower than edgeDraws.
func BuildInfra(rng *rand.Rand, nodeCount, edgeDraws int) (*Graph, []string) {
	if nodeCount <= 0 {
		nodeCount = DefaultNodeCount
	}
	if edgeDraws < 0 {
		edgeDraws = 0
	}

	g := New()
	ids := make([]string, 0, nodeCount)
	for i := 1; i <= nodeCount; i++ {
		id := fmt.Sprintf("Service%d", i)
		g.AddNode(id)
		ids = append(ids, id)
	}
	if nodeCount < 2 {
		return g, ids
	}

	for i := 0; i < edgeDraws; i++ {
		src := rng.Intn(nodeCount)
		dst := rng.Intn(nodeCount - 1)
		if dst >= src {
			dst++
		}
		g.AddEdge(ids[src], ids[dst])
	}
	return g, ids
}

// BuildChain links the unique ids in first-seen order: ids[0] -> ids[1] -> ...
func BuildChain(ids []string) *Graph {
	g := New()
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
		g.AddNode(id)
	}
	for i := 0; i+1 < len(unique); i++ {
		g.AddEdge(unique[i], unique[i+1])
	}
	return g
}
