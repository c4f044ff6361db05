/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package callgraph

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jacobin-labs/apkscope/internal/decompile"
	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/diag"
	"github.com/jacobin-labs/apkscope/internal/label"
	"github.com/jacobin-labs/apkscope/internal/resolve"
)

// BuildOptions configures one graph build (§4.K's "eligible class set").
type BuildOptions struct {
	// PackagePrefixes restricts the scanned classes to those whose fqcn
	// equals, or starts with, a "."-joined member of this set (§4.K).
	// An empty set means every class in the global index.
	PackagePrefixes []string
}

func eligible(fqcn string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if fqcn == prefix || strings.HasPrefix(fqcn, prefix+".") {
			return true
		}
	}
	return false
}

func slashed(dotted string) string { return strings.ReplaceAll(dotted, ".", "/") }

type classRef struct {
	blob dex.BlobID
	def  int
}

// eligibleClasses scans every blob's class defs and returns the ones
// matching opts.PackagePrefixes, cheaply (fqcn only, no class-data read).
func eligibleClasses(idx *dex.GlobalIndex, opts BuildOptions) ([]classRef, error) {
	var out []classRef
	for _, blob := range idx.Blobs() {
		p := blob.Parser
		for i := 0; i < p.ClassDefCount(); i++ {
			cd, err := p.ClassDef(i)
			if err != nil {
				return nil, err
			}
			desc, err := p.TypeDescriptorOf(cd.ClassIdx)
			if err != nil {
				return nil, err
			}
			if eligible(desc.FQCN(), opts.PackagePrefixes) {
				out = append(out, classRef{blob: blob.ID, def: i})
			}
		}
	}
	return out, nil
}

// addClassEdges decompiles one class and records every invoke
// expression's callee as an edge from the declaring method (§4.K.3:
// only the callee-label and call-site are kept, not the full
// expression).
func addClassEdges(g *Graph, labels *label.Table, p *dex.Parser, resolver *resolve.Resolver, ref classRef, warn func(kind diag.Kind, location, message string)) {
	dc, err := decompile.Class(p, resolver, ref.def, decompile.Options{})
	if err != nil {
		warn(diag.KindFormat, "class-def", err.Error())
		return
	}
	for _, m := range dc.Methods {
		callerLabel := "L" + slashed(dc.FQCN) + ";." + m.Name + m.Descriptor
		callerHandle := labels.Intern(callerLabel)
		for _, e := range m.Expressions {
			calleeHandle := labels.Intern(e.CalleeLabel)
			g.AddEdge(callerHandle, calleeHandle)
		}
	}
}

// BuildSequential walks every eligible class once, in global-index
// order, decompiling each and recording its invoke sites as graph
// edges (§4.K "sequential builder: single pass").
func BuildSequential(idx *dex.GlobalIndex, resolver *resolve.Resolver, labels *label.Table, opts BuildOptions, sink *diag.Sink) (*Graph, error) {
	refs, err := eligibleClasses(idx, opts)
	if err != nil {
		return nil, err
	}
	g := NewGraph(labels)
	warn := func(kind diag.Kind, location, message string) {
		if sink != nil {
			sink.Warn(kind, location, message)
		}
	}
	for _, ref := range refs {
		p := idx.Parser(ref.blob)
		addClassEdges(g, labels, p, resolver, ref, warn)
	}
	return g, nil
}

// BuildParallel partitions the eligible class set across a bounded
// pool of workers (§5 "parallel builder... bounded to the number of
// available cores"), each decompiling its own classes and recording
// edges into the shared sharded Graph. Workers never copy the
// underlying DEX bytes — every *dex.Parser is read by reference
// (§9's zero-copy correctness contract) — so the only shared mutable
// state is the Graph (sharded locks), the label Table (RWMutex) and
// the Resolver's cache (RWMutex), all already safe for concurrent use.
func BuildParallel(ctx context.Context, idx *dex.GlobalIndex, resolver *resolve.Resolver, labels *label.Table, opts BuildOptions, sink *diag.ConcurrentSink) (*Graph, error) {
	refs, err := eligibleClasses(idx, opts)
	if err != nil {
		return nil, err
	}
	g := NewGraph(labels)

	workers := runtime.NumCPU()
	if workers > len(refs) {
		workers = len(refs)
	}
	if workers < 1 {
		workers = 1
	}

	warn := func(kind diag.Kind, location, message string) {
		if sink != nil {
			sink.Warn(kind, location, message)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, ref := range refs {
		ref := ref
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return diag.New(diag.KindCancelled, "", "call-graph build cancelled")
			default:
			}
			p := idx.Parser(ref.blob)
			addClassEdges(g, labels, p, resolver, ref, warn)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}
