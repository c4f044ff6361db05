/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package callgraph

import (
	"testing"

	"github.com/jacobin-labs/apkscope/internal/label"
)

func buildSampleGraph(t *testing.T) (*Graph, map[string]label.Handle) {
	t.Helper()
	labels := label.NewTable()
	g := NewGraph(labels)

	h := map[string]label.Handle{}
	intern := func(name string) label.Handle {
		handle := labels.Intern(name)
		h[name] = handle
		return handle
	}

	onCreate := intern("onCreate")
	a := intern("a")
	b := intern("b")
	c := intern("c")
	loadURL := intern("loadUrl")

	g.AddEdge(onCreate, a)
	g.AddEdge(a, b)
	g.AddEdge(b, loadURL)
	g.AddEdge(onCreate, c)
	g.AddEdge(c, loadURL)

	return g, h
}

// TestFindPathsReturnsAllMinimalAndLongerPaths mirrors the graph
// "onCreate -> a -> b -> loadUrl" and "onCreate -> c -> loadUrl": both
// paths to the sink should be found, ordered shortest first.
func TestFindPathsReturnsAllMinimalAndLongerPaths(t *testing.T) {
	g, h := buildSampleGraph(t)

	paths, err := g.FindPaths([]label.Handle{h["onCreate"]}, []label.Handle{h["loadUrl"]}, 3)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("want 2 paths, got %d", len(paths))
	}
	if got := len(paths[0]) - 1; got != 2 {
		t.Fatalf("min_length: want 2, got %d", got)
	}
	if got := len(paths[1]) - 1; got != 3 {
		t.Fatalf("second path length: want 3, got %d", got)
	}
}

func TestFindPathsZeroDepthReturnsNoPaths(t *testing.T) {
	g, h := buildSampleGraph(t)
	start := h["onCreate"]

	paths, err := g.FindPaths([]label.Handle{start}, []label.Handle{start}, 0)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("want 0 paths when max_depth=0 even if start==sink, got %d", len(paths))
	}
}

func TestFindPathsRejectsNegativeMaxDepth(t *testing.T) {
	g, h := buildSampleGraph(t)
	if _, err := g.FindPaths([]label.Handle{h["onCreate"]}, []label.Handle{h["loadUrl"]}, -1); err == nil {
		t.Fatal("expected error for negative max_depth, got nil")
	}
}

func TestFindPathsNoRouteReturnsEmpty(t *testing.T) {
	g, h := buildSampleGraph(t)
	orphan := g.Labels.Intern("unreachable")
	paths, err := g.FindPaths([]label.Handle{h["onCreate"]}, []label.Handle{orphan}, 5)
	if err != nil {
		t.Fatalf("FindPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("want 0 paths, got %d", len(paths))
	}
}
