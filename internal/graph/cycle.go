package graph

import "sort"

// Adjacency is an in-memory copy of the dependency edges of one project.
type Adjacency struct {
	Adj    map[string][]string
	RevAdj map[string][]string
}

func NewAdjacency(edges []*Edge) *Adjacency {
	a := &Adjacency{
		Adj:    make(map[string][]string),
		RevAdj: make(map[string][]string),
	}
	for _, e := range edges {
		a.Adj[e.BlockingID] = append(a.Adj[e.BlockingID], e.BlockedID)
		a.RevAdj[e.BlockedID] = append(a.RevAdj[e.BlockedID], e.BlockingID)
	}
	for k := range a.Adj {
		sort.Strings(a.Adj[k])
	}
	for k := range a.RevAdj {
		sort.Strings(a.RevAdj[k])
	}
	return a
}

// DetectCycle returns the cycle path if one exists, or nil if the dependency
// edges are acyclic. DFS with white/gray/black colouring.
func (a *Adjacency) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range a.Adj[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, len(a.Adj))
	for id := range a.Adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
