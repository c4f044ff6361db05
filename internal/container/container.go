/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package container implements the APK container view (component A):
// expose bytes of named entries without decompressing more than once
// per entry.
package container

import (
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zip"

	"github.com/jacobin-labs/apkscope/internal/diag"
)

const manifestEntry = "AndroidManifest.xml"

var dexNamePattern = regexp.MustCompile(`^classes(\d*)\.dex$`)

// View is an opened APK. It caches each entry's decompressed bytes on
// first access; repeated calls to BytesOf return the same slice.
type View struct {
	zr      *zip.Reader
	closer  io.Closer
	byName  map[string]*zip.File
	cache   map[string][]byte
}

// Open reads the ZIP central directory at path and validates that
// AndroidManifest.xml is present. It does not decompress any entry yet.
func Open(path string) (*View, error) {
	f, err := zipOpenFile(path)
	if err != nil {
		return nil, diag.New(diag.KindContainer, path, "cannot open APK: "+err.Error())
	}
	zr, err := zip.NewReader(f, fileSize(f))
	if err != nil {
		f.Close()
		return nil, diag.New(diag.KindContainer, path, "malformed ZIP: "+err.Error())
	}
	v := &View{zr: zr, closer: f, byName: make(map[string]*zip.File, len(zr.File)), cache: make(map[string][]byte)}
	for _, zf := range zr.File {
		v.byName[zf.Name] = zf
	}
	if _, ok := v.byName[manifestEntry]; !ok {
		f.Close()
		return nil, diag.New(diag.KindContainer, path, "missing required entry AndroidManifest.xml")
	}
	return v, nil
}

// Close releases the underlying file handle.
func (v *View) Close() error {
	if v.closer != nil {
		return v.closer.Close()
	}
	return nil
}

// BytesOf returns the decompressed bytes of a named entry, caching the
// result so repeated access never re-decompresses.
func (v *View) BytesOf(name string) ([]byte, error) {
	if b, ok := v.cache[name]; ok {
		return b, nil
	}
	zf, ok := v.byName[name]
	if !ok {
		return nil, diag.New(diag.KindContainer, name, "entry not found in APK")
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, diag.New(diag.KindContainer, name, "cannot open entry: "+err.Error())
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, diag.New(diag.KindContainer, name, "truncated entry: "+err.Error())
	}
	v.cache[name] = b
	return b, nil
}

// Entries returns every entry name in the archive, in ZIP central
// directory order.
func (v *View) Entries() []string {
	out := make([]string, 0, len(v.zr.File))
	for _, zf := range v.zr.File {
		out = append(out, zf.Name)
	}
	return out
}

// DexEntry pairs one classes*.dex entry's name with its bytes.
type DexEntry struct {
	Name  string
	Bytes []byte
}

// DexEntries returns every classes*.dex entry, ordered by the natural
// numeric order classes.dex, classes2.dex, classes3.dex, ... (§4.A).
func (v *View) DexEntries() ([]DexEntry, error) {
	type named struct {
		name string
		n    int
	}
	var names []named
	for name := range v.byName {
		m := dexNamePattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n := 1
		if m[1] != "" {
			var err error
			n, err = strconv.Atoi(m[1])
			if err != nil {
				continue
			}
		}
		names = append(names, named{name, n})
	}
	sort.Slice(names, func(i, j int) bool { return names[i].n < names[j].n })

	out := make([]DexEntry, 0, len(names))
	for _, nm := range names {
		b, err := v.BytesOf(nm.name)
		if err != nil {
			return nil, err
		}
		out = append(out, DexEntry{Name: nm.name, Bytes: b})
	}
	return out, nil
}
