/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package callgraph

import (
	"testing"

	"github.com/jacobin-labs/apkscope/internal/label"
)

func TestAddEdgeDeduplicatesByCalleeAndCountsSites(t *testing.T) {
	labels := label.NewTable()
	g := NewGraph(labels)
	caller := labels.Intern("caller")
	callee := labels.Intern("callee")

	g.AddEdge(caller, callee)
	g.AddEdge(caller, callee)
	g.AddEdge(caller, callee)

	edges := g.ForwardEdges(caller)
	if len(edges) != 1 {
		t.Fatalf("want 1 distinct edge, got %d", len(edges))
	}
	if edges[0].SiteCount != 3 {
		t.Fatalf("want site count 3, got %d", edges[0].SiteCount)
	}
}

func TestReverseCallersMatchesForwardEdges(t *testing.T) {
	labels := label.NewTable()
	g := NewGraph(labels)
	a := labels.Intern("a")
	b := labels.Intern("b")
	c := labels.Intern("c")

	g.AddEdge(a, c)
	g.AddEdge(b, c)

	callers := g.ReverseCallers(c)
	if len(callers) != 2 {
		t.Fatalf("want 2 callers, got %d", len(callers))
	}
	if callers[0] >= callers[1] {
		t.Fatalf("want ascending sorted callers, got %v", callers)
	}
}

func TestStatsCountsDistinctMethodsAndEdges(t *testing.T) {
	labels := label.NewTable()
	g := NewGraph(labels)
	a := labels.Intern("a")
	b := labels.Intern("b")
	c := labels.Intern("c")

	g.AddEdge(a, b)
	g.AddEdge(b, c)

	methods, edges := g.Stats()
	if methods != 3 {
		t.Fatalf("want 3 distinct methods, got %d", methods)
	}
	if edges != 2 {
		t.Fatalf("want 2 edges, got %d", edges)
	}
}

func TestFindMethodsMatchingSubstring(t *testing.T) {
	labels := label.NewTable()
	g := NewGraph(labels)
	labels.Intern("Landroid/webkit/WebView;.loadUrl(Ljava/lang/String;)V")
	labels.Intern("Landroid/webkit/WebView;.loadData(Ljava/lang/String;Ljava/lang/String;Ljava/lang/String;)V")
	labels.Intern("Lcom/example/Foo;.bar()V")

	matches := g.FindMethodsMatching("WebView;.load")
	if len(matches) != 2 {
		t.Fatalf("want 2 matches, got %d", len(matches))
	}
}
