package graph

// Chain returns the shortest edge path from one module to another, both
// ends included. Edges are followed in insertion order, so ties resolve the
// same way on every run. The second result is false when to is unreachable.
func (g *Graph) Chain(from, to ModuleID) ([]ModuleID, bool) {
	if g.Module(from) == nil || g.Module(to) == nil {
		return nil, false
	}
	if from == to {
		return []ModuleID{from}, true
	}

	prev := make(map[ModuleID]ModuleID)
	visited := map[ModuleID]bool{from: true}
	queue := []ModuleID{from}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		edges := &g.Module(curr).Edges
		for i := 0; i < edges.Len(); i++ {
			next := edges.At(i)
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []ModuleID{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
