/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package resolve implements the method resolver (component G):
// given (class, name, proto), walk the superclass/interface chain via
// the DEX index and return the defining class.
//
// The walk itself mirrors jacobin's classloader lookup shape (a
// named class is searched, then its superclass, recursively) but is
// generalized from Java's single class hierarchy file-at-a-time load
// to DEX's already-fully-indexed global class map, so no class is
// loaded here — every class is already resolvable via the index.
package resolve

import (
	"sync"

	"github.com/jacobin-labs/apkscope/internal/dex"
)

// key identifies one (class, name, proto) resolution.
type key struct {
	class, name, proto string
}

// Resolver answers method-resolution queries over one analyzer's
// global class index. Per §4.G, the cache is per-analyzer (a fresh
// Resolver per APK) and concurrency-safe: Resolve takes a read lock
// first and only upgrades to a write lock on a miss.
type Resolver struct {
	index *dex.GlobalIndex

	mu    sync.RWMutex
	cache map[key]string // resolved defining-class fqcn, "" = not found
}

// New returns a Resolver backed by idx.
func New(idx *dex.GlobalIndex) *Resolver {
	return &Resolver{index: idx, cache: make(map[key]string)}
}

// Resolve searches class for a method (name, protoDescriptor),
// recursing into the direct superclass chain and then declared
// interfaces (§4.G). The second return is false when no definition
// was found anywhere in the indexed classes (a resolution miss,
// §7 — non-fatal; callers fall back to the static method reference).
func (r *Resolver) Resolve(class, name, protoDescriptor string) (string, bool) {
	k := key{class, name, protoDescriptor}

	r.mu.RLock()
	if v, ok := r.cache[k]; ok {
		r.mu.RUnlock()
		return v, v != ""
	}
	r.mu.RUnlock()

	found := r.resolveUncached(class, name, protoDescriptor, make(map[string]bool))

	r.mu.Lock()
	r.cache[k] = found
	r.mu.Unlock()

	return found, found != ""
}

func (r *Resolver) resolveUncached(class, name, protoDescriptor string, seen map[string]bool) string {
	if class == "" || seen[class] {
		return ""
	}
	seen[class] = true

	loc, ok := r.index.Lookup(class)
	if !ok {
		return ""
	}
	p := r.index.Parser(loc.Blob)
	ci, err := p.ClassInfo(loc.ClassDef)
	if err != nil {
		return ""
	}

	for _, m := range ci.AllMethods() {
		mName, mDesc, err := p.MethodNameDescriptor(m.MethodIdx)
		if err != nil {
			continue
		}
		if mName == name && mDesc == protoDescriptor {
			return class
		}
	}

	if found := r.resolveUncached(ci.Super, name, protoDescriptor, seen); found != "" {
		return found
	}
	for _, iface := range ci.Interfaces {
		if found := r.resolveUncached(iface, name, protoDescriptor, seen); found != "" {
			return found
		}
	}
	return ""
}
