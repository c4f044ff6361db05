/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package callgraph implements the call-graph builder (component K):
// sequential and parallel construction over a filtered class set, and
// the BFS path search the data-flow analyzer (component L) consumes.
package callgraph

import (
	"sort"
	"sync"

	"github.com/jacobin-labs/apkscope/internal/label"
)

const numShards = 32

// Edge is one caller→callee relationship, deduplicated by callee, with
// a call-site count (§3: "an edge records callee-label and call-site
// count").
type Edge struct {
	Callee    label.Handle
	SiteCount int
}

// Graph is the sharded forward/reverse adjacency structure of §5
// ("sharded locks keyed by caller-label hash... preferred for classes
// >1,000"). Sharding only guards construction; once built the maps are
// read-only and need no further locking.
type Graph struct {
	Labels *label.Table

	fwdShards []fwdShard
	revShards []revShard
}

type fwdShard struct {
	mu sync.Mutex
	m  map[label.Handle]map[label.Handle]int // caller -> callee -> site count
}

type revShard struct {
	mu sync.Mutex
	m  map[label.Handle]map[label.Handle]bool // callee -> set of callers
}

// NewGraph returns an empty graph backed by labels.
func NewGraph(labels *label.Table) *Graph {
	g := &Graph{
		Labels:    labels,
		fwdShards: make([]fwdShard, numShards),
		revShards: make([]revShard, numShards),
	}
	for i := range g.fwdShards {
		g.fwdShards[i].m = make(map[label.Handle]map[label.Handle]int)
	}
	for i := range g.revShards {
		g.revShards[i].m = make(map[label.Handle]map[label.Handle]bool)
	}
	return g
}

func shardOf(h label.Handle, n int) int { return int(h) % n }

// AddEdge records one caller→callee call site, incrementing the edge's
// site count on repeat. Safe for concurrent use from multiple workers
// (§4.K "edge insertion is... protected by sharded locks").
func (g *Graph) AddEdge(caller, callee label.Handle) {
	fs := &g.fwdShards[shardOf(caller, len(g.fwdShards))]
	fs.mu.Lock()
	callees, ok := fs.m[caller]
	if !ok {
		callees = make(map[label.Handle]int)
		fs.m[caller] = callees
	}
	callees[callee]++
	fs.mu.Unlock()

	rs := &g.revShards[shardOf(callee, len(g.revShards))]
	rs.mu.Lock()
	callers, ok := rs.m[callee]
	if !ok {
		callers = make(map[label.Handle]bool)
		rs.m[callee] = callers
	}
	callers[caller] = true
	rs.mu.Unlock()
}

// ForwardEdges returns caller's outgoing edges, sorted by callee
// handle for deterministic iteration (§5 "deterministic order").
func (g *Graph) ForwardEdges(caller label.Handle) []Edge {
	fs := &g.fwdShards[shardOf(caller, len(g.fwdShards))]
	fs.mu.Lock()
	defer fs.mu.Unlock()
	callees := fs.m[caller]
	out := make([]Edge, 0, len(callees))
	for callee, n := range callees {
		out = append(out, Edge{Callee: callee, SiteCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callee < out[j].Callee })
	return out
}

// ReverseCallers returns the set of callers of callee, sorted for
// deterministic iteration.
func (g *Graph) ReverseCallers(callee label.Handle) []label.Handle {
	rs := &g.revShards[shardOf(callee, len(g.revShards))]
	rs.mu.Lock()
	defer rs.mu.Unlock()
	set := rs.m[callee]
	out := make([]label.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats reports method and edge counts (§4.K "stats() → {methods,
// edges}"). A method counts once if it appears as a caller or a
// callee anywhere in the graph.
func (g *Graph) Stats() (methods, edges int) {
	seen := make(map[label.Handle]bool)
	for i := range g.fwdShards {
		fs := &g.fwdShards[i]
		fs.mu.Lock()
		for caller, callees := range fs.m {
			seen[caller] = true
			for callee := range callees {
				seen[callee] = true
				edges++
			}
		}
		fs.mu.Unlock()
	}
	return len(seen), edges
}

// FindMethodsMatching returns every interned label whose string
// contains pattern, sorted ascending (§4.K, §5 "deterministic order").
func (g *Graph) FindMethodsMatching(pattern string) []label.Handle {
	var out []label.Handle
	for h := label.Handle(1); int(h) <= g.Labels.Len(); h++ {
		if contains(g.Labels.Name(h), pattern) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func contains(s, substr string) bool {
	return indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
