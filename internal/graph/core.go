package graph

// Compute2Core strips every node of degree below two, repeatedly, until only
// the 2-core remains. Both halves of a segment are removed together. The
// graph is rebuilt in place from the survivors with fresh, dense node and
// edge handles; forward edges keep the lower EdgeID of each pair.
func (g *Graph) Compute2Core() CoreStats {
	stats := CoreStats{
		NodesBefore: len(g.nodes),
		EdgesBefore: len(g.edges),
	}

	degree := make([]int, len(g.nodes))
	for h := range g.nodes {
		degree[h] = len(g.adj[h])
	}
	removedNode := make([]bool, len(g.nodes))
	removedEdge := make([]bool, len(g.edges))

	var queue []int
	for h, d := range degree {
		if d < 2 {
			queue = append(queue, h)
			removedNode[h] = true
		}
	}
	for i := 0; i < len(queue); i++ {
		h := queue[i]
		for _, eid := range g.adj[h] {
			if removedEdge[eid] {
				continue
			}
			mirror := g.edges[eid].Mirror
			removedEdge[eid] = true
			removedEdge[mirror] = true
			degree[h]--
			next := g.heads[eid]
			degree[next]--
			if !removedNode[next] && degree[next] < 2 {
				removedNode[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, h := range queue {
		stats.RemovedNodes = append(stats.RemovedNodes, g.nodes[h].ID)
	}
	g.rebuild(removedNode, removedEdge)
	stats.NodesAfter = len(g.nodes)
	stats.EdgesAfter = len(g.edges)
	return stats
}

func (g *Graph) rebuild(removedNode, removedEdge []bool) {
	oldNodes, oldEdges := g.nodes, g.edges

	g.nodes = make([]Node, 0, len(oldNodes))
	g.index = make(map[int64]int, len(oldNodes))
	for h, n := range oldNodes {
		if removedNode[h] {
			continue
		}
		g.index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	g.edges = nil
	g.tails, g.heads = nil, nil
	g.adj = make([][]EdgeID, len(g.nodes))

	for _, e := range oldEdges {
		if removedEdge[e.ID] || e.Reversed() {
			continue
		}
		// Build only fails on unknown endpoints; survivors always have both.
		_ = g.addSegment(e.From, e.To, e.Distance)
	}
}
