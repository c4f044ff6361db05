/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package callgraph

import (
	"fmt"
	"sort"

	"github.com/jacobin-labs/apkscope/internal/label"
)

// Path is an ordered sequence of method handles with contiguous
// caller→callee edges in the forward graph (§3).
type Path []label.Handle

// FindPaths runs a breadth-first enumeration from every start to any
// node matching a target, bounded by maxDepth edges (§4.K, §9
// "max_depth counts edges, not nodes"). Every minimal-or-longer simple
// path up to maxDepth is returned — exploration continues past a
// match so alternate paths of equal or greater length are also found
// — and a per-path visited set prevents revisiting a node within that
// path, while distinct paths may of course share nodes.
func (g *Graph) FindPaths(starts, targets []label.Handle, maxDepth int) ([]Path, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("max_depth must be non-negative, got %d", maxDepth)
	}
	targetSet := make(map[label.Handle]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	sortedStarts := append([]label.Handle(nil), starts...)
	sort.Slice(sortedStarts, func(i, j int) bool { return sortedStarts[i] < sortedStarts[j] })

	type item struct {
		path    Path
		visited map[label.Handle]bool
	}
	queue := make([]item, 0, len(sortedStarts))
	for _, s := range sortedStarts {
		queue = append(queue, item{path: Path{s}, visited: map[label.Handle]bool{s: true}})
	}

	var results []Path
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		depth := len(cur.path) - 1
		if depth >= maxDepth {
			continue
		}
		last := cur.path[len(cur.path)-1]
		for _, e := range g.ForwardEdges(last) {
			if cur.visited[e.Callee] {
				continue
			}
			newPath := append(append(Path{}, cur.path...), e.Callee)
			if targetSet[e.Callee] {
				results = append(results, newPath)
			}
			newVisited := make(map[label.Handle]bool, len(cur.visited)+1)
			for h := range cur.visited {
				newVisited[h] = true
			}
			newVisited[e.Callee] = true
			queue = append(queue, item{path: newPath, visited: newVisited})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if len(results[i]) != len(results[j]) {
			return len(results[i]) < len(results[j])
		}
		for k := range results[i] {
			if results[i][k] != results[j][k] {
				return results[i][k] < results[j][k]
			}
		}
		return false
	})
	return results, nil
}
