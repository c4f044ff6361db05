/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

import "github.com/jacobin-labs/apkscope/internal/diag"

// BlobID identifies one classes*.dex entry within an APK, per the
// natural numeric order of §4.A (classes.dex=0, classes2.dex=1, ...).
type BlobID int

// Location is (dex-blob-id, class-def-index): the global index never
// dereferences a class until analysis requires it (§3).
type Location struct {
	Blob     BlobID
	ClassDef int
}

// Blob pairs one DEX parser with the blob id it came from, so a
// caller can resolve a Location back to bytes.
type Blob struct {
	ID     BlobID
	Parser *Parser
}

// Index is the per-DEX fqcn → class-def-index map (§4.E).
type Index struct {
	Blob    BlobID
	byFQCN  map[string]int
}

// BuildIndex iterates p's class defs and returns the fqcn →
// class-def-index map for one DEX blob.
func BuildIndex(id BlobID, p *Parser) (*Index, error) {
	idx := &Index{Blob: id, byFQCN: make(map[string]int, p.ClassDefCount())}
	for i := 0; i < p.ClassDefCount(); i++ {
		cd, err := p.ClassDef(i)
		if err != nil {
			return nil, err
		}
		desc, err := p.TypeDescriptorOf(cd.ClassIdx)
		if err != nil {
			return nil, err
		}
		idx.byFQCN[desc.FQCN()] = i
	}
	return idx, nil
}

// Lookup resolves a fqcn within this one DEX blob.
func (idx *Index) Lookup(fqcn string) (int, bool) {
	i, ok := idx.byFQCN[fqcn]
	return i, ok
}

// GlobalIndex composes per-DEX indices, in the natural dex-name order
// of §4.A, into one fqcn → Location map. On a collision the class
// already present (from the earlier DEX) wins (§4.E, §9 "first
// wins"); the later occurrence is reported through sink as a
// DuplicateClass diagnostic without failing the query.
type GlobalIndex struct {
	blobs []Blob
	byFQCN map[string]Location
}

// BuildGlobalIndex composes indices for blobs, which must already be
// ordered per §4.A (classes.dex, classes2.dex, ...).
func BuildGlobalIndex(blobs []Blob, sink *diag.Sink) (*GlobalIndex, error) {
	g := &GlobalIndex{blobs: blobs, byFQCN: make(map[string]Location)}
	for _, blob := range blobs {
		idx, err := BuildIndex(blob.ID, blob.Parser)
		if err != nil {
			return nil, err
		}
		for fqcn, cdIdx := range idx.byFQCN {
			if _, exists := g.byFQCN[fqcn]; exists {
				if sink != nil {
					sink.Warn(diag.KindIndex, fqcn, "DuplicateClass: class defined in more than one DEX blob, first occurrence kept")
				}
				continue
			}
			g.byFQCN[fqcn] = Location{Blob: blob.ID, ClassDef: cdIdx}
		}
	}
	return g, nil
}

// Lookup resolves a fully qualified class name to its (blob,
// class-def-index) location.
func (g *GlobalIndex) Lookup(fqcn string) (Location, bool) {
	loc, ok := g.byFQCN[fqcn]
	return loc, ok
}

// Len returns the number of distinct classes in the global index.
func (g *GlobalIndex) Len() int { return len(g.byFQCN) }

// Parser returns the Parser owning a given blob id.
func (g *GlobalIndex) Parser(id BlobID) *Parser {
	for _, b := range g.blobs {
		if b.ID == id {
			return b.Parser
		}
	}
	return nil
}

// Blobs returns the ordered blob list this index was built from.
func (g *GlobalIndex) Blobs() []Blob { return g.blobs }
