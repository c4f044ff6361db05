/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package dataflow implements the data-flow analyzer (component L):
// bounded-depth BFS over the call graph from entry-point lifecycle
// methods to sink method patterns, grouped into Flow records.
package dataflow

import (
	"sort"

	"github.com/jacobin-labs/apkscope/internal/callgraph"
	"github.com/jacobin-labs/apkscope/internal/entrypoint"
	"github.com/jacobin-labs/apkscope/internal/label"
	"github.com/jacobin-labs/apkscope/internal/manifest"
)

// Flow is one entry-point-to-sink discovery record (§3): zero or more
// concrete call paths, sorted by length ascending.
type Flow struct {
	EntryPointLabel string
	ComponentKind   manifest.ComponentKind
	SinkLabel       string
	Paths           []callgraph.Path
	IsDeeplink      bool
	MinLength       int
	Count           int
}

// Confidence scores a path length for ranking only (§4.L): it never
// affects whether a path is included.
func Confidence(pathLength int) float64 {
	switch {
	case pathLength <= 3:
		return 0.9
	case pathLength <= 5:
		return 0.7
	case pathLength <= 8:
		return 0.5
	default:
		return 0.3
	}
}

// Canned sink pattern sets (§4.L), values rather than code: the
// engine below is a single BFS driven by whatever pattern list is
// passed in (§9 "polymorphic sink-pattern matching").
var (
	WebViewSinks = []string{
		"Landroid/webkit/WebView;.loadUrl",
		"Landroid/webkit/WebView;.loadData",
		"Landroid/webkit/WebView;.loadDataWithBaseURL",
		"Landroid/webkit/WebView;.evaluateJavascript",
		"Landroid/webkit/WebView;.addJavascriptInterface",
	}
	FileIOSinks = []string{
		"Ljava/io/FileOutputStream;.write",
		"Ljava/io/FileWriter;.write",
		"Ljava/nio/file/Files;.write",
	}
	NetworkSinks = []string{
		"Ljava/net/HttpURLConnection;.connect",
		"Lokhttp3/OkHttpClient;.newCall",
		"Ljava/net/Socket;.connect",
	}
	SQLSinks = []string{
		"Landroid/database/sqlite/SQLiteDatabase;.execSQL",
		"Landroid/database/sqlite/SQLiteDatabase;.rawQuery",
	}
)

// Analyze runs the data-flow analyzer for every entry point against
// the union of sinkPatterns, up to maxDepth edges (§4.L). Entry points
// whose class was not found in the DEX index (entrypoint.EntryPoint
// with ClassFound=false) never participate, matching §8's boundary
// behavior that such entry points never appear in flows.
func Analyze(g *callgraph.Graph, entryPoints []entrypoint.EntryPoint, sinkPatterns []string, maxDepth int) ([]Flow, error) {
	var sinks []label.Handle
	seen := make(map[label.Handle]bool)
	for _, pat := range sinkPatterns {
		for _, h := range g.FindMethodsMatching(pat) {
			if !seen[h] {
				seen[h] = true
				sinks = append(sinks, h)
			}
		}
	}
	sort.Slice(sinks, func(i, j int) bool { return sinks[i] < sinks[j] })

	var flows []Flow
	for _, ep := range entryPoints {
		if !ep.ClassFound {
			continue
		}
		starts := entryPointStarts(g, ep)
		if len(starts) == 0 || len(sinks) == 0 {
			continue
		}
		paths, err := g.FindPaths(starts, sinks, maxDepth)
		if err != nil {
			return nil, err
		}
		flows = append(flows, groupByEntryAndSink(g, ep, paths)...)
	}
	return flows, nil
}

// entryPointStarts resolves an entry point's lifecycle method labels
// (plus any constructor, per §4.L "∪ the class's constructors if
// present") to graph handles, skipping any not present in the graph —
// a method the call-graph builder never saw an invoke site touch.
func entryPointStarts(g *callgraph.Graph, ep entrypoint.EntryPoint) []label.Handle {
	var starts []label.Handle
	for _, m := range ep.LifecycleMethods {
		if h, ok := g.Labels.Lookup(m); ok {
			starts = append(starts, h)
		}
	}
	ctor := g.FindMethodsMatching(ep.ClassLabel + ".<init>")
	starts = append(starts, ctor...)
	return dedupeHandles(starts)
}

func dedupeHandles(in []label.Handle) []label.Handle {
	seen := make(map[label.Handle]bool, len(in))
	out := in[:0]
	for _, h := range in {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// groupByEntryAndSink partitions paths found from one entry point by
// their terminal sink handle into Flow records (§4.L "group by
// (entry_point, sink)").
func groupByEntryAndSink(g *callgraph.Graph, ep entrypoint.EntryPoint, paths []callgraph.Path) []Flow {
	bySink := make(map[label.Handle][]callgraph.Path)
	var order []label.Handle
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		sink := p[len(p)-1]
		if _, ok := bySink[sink]; !ok {
			order = append(order, sink)
		}
		bySink[sink] = append(bySink[sink], p)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]Flow, 0, len(order))
	for _, sink := range order {
		ps := bySink[sink]
		sort.SliceStable(ps, func(i, j int) bool { return len(ps[i]) < len(ps[j]) })
		out = append(out, Flow{
			EntryPointLabel: ep.ClassLabel,
			ComponentKind:   ep.ComponentKind,
			SinkLabel:       g.Labels.Name(sink),
			Paths:           ps,
			IsDeeplink:      ep.IsDeeplinkHandler,
			MinLength:       len(ps[0]) - 1,
			Count:           len(ps),
		})
	}
	return out
}
