/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package entrypoint implements the entry-point analyzer (component
// J): joins the manifest model (C) with the DEX global index (E) to
// classify each declared component and flag deeplink handlers.
package entrypoint

import (
	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/manifest"
)

// EntryPoint is one manifest-declared component paired with its class
// (§3).
type EntryPoint struct {
	ClassLabel        string // "Lslashed/Class;"
	ComponentKind      manifest.ComponentKind
	LifecycleMethods   []string // fully qualified method labels
	IntentFilters      []manifest.IntentFilter
	IsExported         bool
	IsDeeplinkHandler  bool
	ClassFound         bool
}

// lifecycleSets pins the conventional method-name sets per component
// kind (§4.J, §9 Open Question "Lifecycle method sets": pinned for
// determinism rather than left extensible).
var lifecycleSets = map[manifest.ComponentKind][]string{
	manifest.KindActivity: {"onCreate", "onStart", "onResume", "onNewIntent", "onActivityResult", "onPause", "onStop", "onDestroy"},
	manifest.KindService:  {"onCreate", "onStartCommand", "onBind", "onDestroy"},
	manifest.KindReceiver: {"onReceive"},
	manifest.KindProvider: {"onCreate", "query", "insert", "update", "delete"},
}

// Build produces one EntryPoint per component declared in m.
func Build(m *manifest.Manifest, idx *dex.GlobalIndex) ([]EntryPoint, error) {
	var out []EntryPoint
	groups := []struct {
		kind  manifest.ComponentKind
		comps []manifest.Component
	}{
		{manifest.KindActivity, m.Activities},
		{manifest.KindService, m.Services},
		{manifest.KindReceiver, m.Receivers},
		{manifest.KindProvider, m.Providers},
	}
	for _, g := range groups {
		for _, c := range g.comps {
			ep, err := build(c, g.kind, idx)
			if err != nil {
				return nil, err
			}
			out = append(out, ep)
		}
	}
	return out, nil
}

func build(c manifest.Component, kind manifest.ComponentKind, idx *dex.GlobalIndex) (EntryPoint, error) {
	ep := EntryPoint{
		ComponentKind:     kind,
		IntentFilters:     c.IntentFilters,
		IsDeeplinkHandler: c.IsDeeplinkHandler(),
	}
	if c.Exported != nil {
		ep.IsExported = *c.Exported
	}

	loc, ok := idx.Lookup(c.Name)
	if !ok {
		ep.ClassLabel = "L" + slashed(c.Name) + ";"
		ep.ClassFound = false
		return ep, nil
	}
	ep.ClassFound = true

	p := idx.Parser(loc.Blob)
	ci, err := p.ClassInfo(loc.ClassDef)
	if err != nil {
		return ep, err
	}
	ep.ClassLabel = "L" + slashed(ci.FQCN) + ";"

	want := lifecycleSets[kind]
	present := make(map[string]bool, len(want))
	for _, w := range want {
		present[w] = false
	}
	for _, method := range ci.AllMethods() {
		name, descriptor, err := p.MethodNameDescriptor(method.MethodIdx)
		if err != nil {
			continue
		}
		if _, wanted := present[name]; wanted {
			ep.LifecycleMethods = append(ep.LifecycleMethods, ep.ClassLabel+"."+name+descriptor)
		}
	}
	return ep, nil
}

func slashed(dotted string) string {
	b := []byte(dotted)
	for i, c := range b {
		if c == '.' {
			b[i] = '/'
		}
	}
	return string(b)
}
