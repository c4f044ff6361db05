/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package apkscope is the public entry point to the static-analysis
// core: open an APK, build its call graph, and trace data flows from
// entry points to sink method patterns.
package apkscope

import (
	"bytes"
	"context"

	"github.com/jacobin-labs/apkscope/internal/binxml"
	"github.com/jacobin-labs/apkscope/internal/callgraph"
	"github.com/jacobin-labs/apkscope/internal/container"
	"github.com/jacobin-labs/apkscope/internal/dataflow"
	"github.com/jacobin-labs/apkscope/internal/decompile"
	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/diag"
	"github.com/jacobin-labs/apkscope/internal/entrypoint"
	"github.com/jacobin-labs/apkscope/internal/expr"
	"github.com/jacobin-labs/apkscope/internal/label"
	"github.com/jacobin-labs/apkscope/internal/manifest"
	"github.com/jacobin-labs/apkscope/internal/resolve"
)

// AnalyzerOptions configures one Open call. Built with the
// functional-options idiom the corpus's library-shaped packages use
// (open-component-model, bennypowers-cem) rather than an exported
// struct literal, so future options don't break callers.
type AnalyzerOptions struct {
	packagePrefixes  []string
	parallel         bool
	resourceResolver expr.ResourceResolver
}

// AnalyzerOption mutates AnalyzerOptions.
type AnalyzerOption func(*AnalyzerOptions)

// WithPackagePrefixes restricts call-graph construction to the given
// set of package subtrees (§4.K); a class is eligible if its fqcn
// equals, or starts with, any member of prefixes. An empty (or never
// supplied) set means every class in the index.
func WithPackagePrefixes(prefixes []string) AnalyzerOption {
	return func(o *AnalyzerOptions) { o.packagePrefixes = prefixes }
}

// WithParallel selects the errgroup-based parallel call-graph builder
// over the sequential one (§5).
func WithParallel(parallel bool) AnalyzerOption {
	return func(o *AnalyzerOptions) { o.parallel = parallel }
}

// WithResourceResolver supplies the optional resources.arsc
// collaborator the expression builder uses to render `R.type.name`
// literals (§1/§9); nil (the default) leaves literals decimal.
func WithResourceResolver(r expr.ResourceResolver) AnalyzerOption {
	return func(o *AnalyzerOptions) { o.resourceResolver = r }
}

// Analysis is one opened APK: its manifest, entry points, and the
// call graph built over its DEX blobs. Re-used across multiple Flows
// or DecompileClass calls against the same APK.
type Analysis struct {
	Manifest    *manifest.Manifest
	EntryPoints []entrypoint.EntryPoint
	Graph       *callgraph.Graph
	Sink        *diag.Sink

	idx              *dex.GlobalIndex
	resolver         *resolve.Resolver
	resourceResolver expr.ResourceResolver
}

// Open runs the full pipeline of §2's control flow: unpack the
// container, parse the manifest, index and resolve the DEX blobs, and
// build the call graph.
func Open(ctx context.Context, path string, opts ...AnalyzerOption) (*Analysis, error) {
	var o AnalyzerOptions
	for _, fn := range opts {
		fn(&o)
	}
	sink := diag.NewSink()

	view, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	manifestBytes, err := view.BytesOf("AndroidManifest.xml")
	if err != nil {
		return nil, err
	}
	events, err := binxml.Parse(bytes.NewReader(manifestBytes))
	if err != nil {
		return nil, err
	}
	m, err := manifest.Build(events)
	if err != nil {
		return nil, err
	}

	dexEntries, err := view.DexEntries()
	if err != nil {
		return nil, err
	}
	blobs := make([]dex.Blob, 0, len(dexEntries))
	for i, de := range dexEntries {
		p, err := dex.New(de.Bytes)
		if err != nil {
			sink.Warn(diag.KindFormat, de.Name, err.Error())
			continue
		}
		blobs = append(blobs, dex.Blob{ID: dex.BlobID(i), Parser: p})
	}

	idx, err := dex.BuildGlobalIndex(blobs, sink)
	if err != nil {
		return nil, err
	}
	resolver := resolve.New(idx)

	eps, err := entrypoint.Build(m, idx)
	if err != nil {
		return nil, err
	}

	labels := label.NewTable()
	buildOpts := callgraph.BuildOptions{PackagePrefixes: o.packagePrefixes}

	var graph *callgraph.Graph
	if o.parallel {
		csink := diag.NewConcurrentSink()
		graph, err = callgraph.BuildParallel(ctx, idx, resolver, labels, buildOpts, csink)
		if err != nil {
			return nil, err
		}
		for _, e := range csink.Entries() {
			sink.Warn(e.Kind, e.Location, e.Message)
		}
	} else {
		graph, err = callgraph.BuildSequential(idx, resolver, labels, buildOpts, sink)
		if err != nil {
			return nil, err
		}
	}

	return &Analysis{
		Manifest:         m,
		EntryPoints:      eps,
		Graph:            graph,
		Sink:             sink,
		idx:              idx,
		resolver:         resolver,
		resourceResolver: o.resourceResolver,
	}, nil
}

// Flows runs the data-flow analyzer (component L) over this
// analysis's graph, searching the union of sinkPatterns from every
// entry point up to maxDepth edges.
func (a *Analysis) Flows(sinkPatterns []string, maxDepth int) ([]dataflow.Flow, error) {
	return dataflow.Analyze(a.Graph, a.EntryPoints, sinkPatterns, maxDepth)
}

// DecompileClass runs the class decompiler (component I) over one
// fully qualified class name, rendering literals through the
// resource resolver supplied to Open, if any.
func (a *Analysis) DecompileClass(fqcn string) (decompile.DecompiledClass, error) {
	loc, ok := a.idx.Lookup(fqcn)
	if !ok {
		return decompile.DecompiledClass{}, diag.New(diag.KindIndex, fqcn, "class not found in DEX index")
	}
	p := a.idx.Parser(loc.Blob)
	return decompile.Class(p, a.resolver, loc.ClassDef, decompile.Options{ResourceResolver: a.resourceResolver})
}
