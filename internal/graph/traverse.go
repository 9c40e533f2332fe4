package graph

import (
	"context"
	"fmt"
)

// Ancestors walks the parent chain of taskID, nearest first.
func Ancestors(ctx context.Context, r Reader, taskID string) ([]string, error) {
	var out []string
	seen := map[string]struct{}{taskID: {}}
	cur := taskID
	for {
		parent, err := r.Parent(ctx, cur)
		if err != nil {
			return nil, err
		}
		if parent == "" {
			return out, nil
		}
		if _, ok := seen[parent]; ok {
			return nil, fmt.Errorf("parent chain of %s loops at %s", taskID, parent)
		}
		seen[parent] = struct{}{}
		out = append(out, parent)
		cur = parent
	}
}

// IsAncestor reports whether ancestorID appears on the parent chain of taskID.
func IsAncestor(ctx context.Context, r Reader, ancestorID, taskID string) (bool, error) {
	ancestors, err := Ancestors(ctx, r, taskID)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

// SearchResult describes one breadth-first search over the combined graph.
type SearchResult struct {
	Found   bool
	Visited int
	// Path from the start node to the target, both inclusive, when Found.
	Path []string
}

// Search runs a breadth-first search from start over the combined graph:
// outgoing dependency edges (start blocks X) plus parent and child edges in
// both directions. Each node is expanded at most once.
func Search(ctx context.Context, r Reader, start, target string) (SearchResult, error) {
	if start == target {
		return SearchResult{Found: true, Visited: 1, Path: []string{start}}, nil
	}
	prev := map[string]string{start: ""}
	queue := []string{start}
	visited := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return SearchResult{}, err
		}
		node := queue[0]
		queue = queue[1:]
		visited++

		next, err := neighbours(ctx, r, node)
		if err != nil {
			return SearchResult{}, err
		}
		for _, n := range next {
			if _, ok := prev[n]; ok {
				continue
			}
			prev[n] = node
			if n == target {
				return SearchResult{Found: true, Visited: visited + 1, Path: buildPath(prev, n)}, nil
			}
			queue = append(queue, n)
		}
	}
	return SearchResult{Visited: visited}, nil
}

func neighbours(ctx context.Context, r Reader, node string) ([]string, error) {
	blocked, err := r.Blocked(ctx, node)
	if err != nil {
		return nil, err
	}
	children, err := r.Children(ctx, node)
	if err != nil {
		return nil, err
	}
	parent, err := r.Parent(ctx, node)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(blocked)+len(children)+1)
	out = append(out, blocked...)
	out = append(out, children...)
	if parent != "" {
		out = append(out, parent)
	}
	return out, nil
}

func buildPath(prev map[string]string, end string) []string {
	var path []string
	for cur := end; cur != ""; cur = prev[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
