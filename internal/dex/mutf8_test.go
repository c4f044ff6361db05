/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

import "testing"

func TestMutf8RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"com.example.app.MainActivity",
		"café",    // 2-byte sequence
		"中文", // 3-byte sequences
		"\U0001F600",   // supplementary plane, surrogate pair encoding
		"a\U0001F600b", // surrounded by ASCII
	}
	for _, s := range cases {
		enc := encodeMUTF8(s)
		units := utf16Len(s)
		got, err := decodeMUTF8(enc, units)
		if err != nil {
			t.Fatalf("decodeMUTF8(%q): %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip mismatch: want %q, got %q", s, got)
		}
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func TestMutf8EmbeddedNulRejected(t *testing.T) {
	if _, err := decodeMUTF8([]byte{0x00}, 1); err == nil {
		t.Fatal("expected error for embedded NUL, got nil")
	}
}

func TestMutf8TruncatedSequenceRejected(t *testing.T) {
	if _, err := decodeMUTF8([]byte{0xE4}, 1); err == nil {
		t.Fatal("expected error for truncated 3-byte sequence, got nil")
	}
}

func TestULEB128RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16384, 0xFFFFFFFF}
	for _, v := range values {
		buf := encodeULEB128(v)
		r := newReader(buf)
		got, err := r.uleb128()
		if err != nil {
			t.Fatalf("uleb128(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("uleb128 round trip: want %d, got %d", v, got)
		}
	}
}

func encodeULEB128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}
