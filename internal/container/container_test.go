/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package container_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobin-labs/apkscope/internal/container"
)

// writeAPK builds a minimal ZIP archive at dir/name.apk with the given
// entries and returns its path. klauspost/compress/zip reads the same
// on-disk format archive/zip writes, so the stdlib writer is enough to
// produce a fixture.
func writeAPK(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entryName := range []string{"AndroidManifest.xml", "classes.dex", "classes2.dex", "resources.arsc"} {
		content, ok := entries[entryName]
		if !ok {
			continue
		}
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatalf("zw.Create(%q): %v", entryName, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("w.Write(%q): %v", entryName, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	return path
}

func TestOpenRejectsAPKMissingManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeAPK(t, dir, "no-manifest.apk", map[string]string{
		"classes.dex": "dex-bytes",
	})

	if _, err := container.Open(path); err == nil {
		t.Fatal("Open: want error for a missing AndroidManifest.xml, got nil")
	}
}

func TestDexEntriesOrdersByNumericSuffix(t *testing.T) {
	dir := t.TempDir()
	path := writeAPK(t, dir, "multidex.apk", map[string]string{
		"AndroidManifest.xml": "manifest-bytes",
		"classes.dex":         "first",
		"classes2.dex":        "second",
	})

	v, err := container.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	entries, err := v.DexEntries()
	if err != nil {
		t.Fatalf("DexEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Name != "classes.dex" || string(entries[0].Bytes) != "first" {
		t.Errorf("entries[0] = %+v, want classes.dex/first", entries[0])
	}
	if entries[1].Name != "classes2.dex" || string(entries[1].Bytes) != "second" {
		t.Errorf("entries[1] = %+v, want classes2.dex/second", entries[1])
	}
}

func TestBytesOfCachesDecompressedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeAPK(t, dir, "cache.apk", map[string]string{
		"AndroidManifest.xml": "manifest-bytes",
	})

	v, err := container.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	first, err := v.BytesOf("AndroidManifest.xml")
	if err != nil {
		t.Fatalf("BytesOf: %v", err)
	}
	second, err := v.BytesOf("AndroidManifest.xml")
	if err != nil {
		t.Fatalf("BytesOf: %v", err)
	}
	if string(first) != "manifest-bytes" {
		t.Errorf("BytesOf content = %q, want %q", first, "manifest-bytes")
	}
	if &first[0] != &second[0] {
		t.Error("BytesOf: want the identical cached slice on a repeated call")
	}
}

func TestBytesOfMissingEntryErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeAPK(t, dir, "plain.apk", map[string]string{
		"AndroidManifest.xml": "manifest-bytes",
	})

	v, err := container.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	if _, err := v.BytesOf("does-not-exist"); err == nil {
		t.Fatal("BytesOf: want error for a missing entry, got nil")
	}
}
