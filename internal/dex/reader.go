/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package dex implements components D (DEX parser), E (DEX index) and
// F (instruction decoder) of the static-analysis core: a bit-exact
// reader for one DEX blob, random-access queries keyed by index, and
// a decoder for the Dalvik instruction stream.
//
// The reading style — an offset-keyed cursor over a borrowed byte
// slice, with typed getters built on top — follows jacobin's constant
// pool walk in classloader/classloader.go and CPutils.go, generalized
// from Java class files to DEX's pooled sections.
package dex

import (
	"encoding/binary"

	"github.com/jacobin-labs/apkscope/internal/diag"
)

// reader is a zero-copy cursor over a borrowed DEX byte buffer. It
// never allocates a copy of buf; every read returns either a value
// type or a subslice of buf.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) at(pos int) *reader {
	return &reader{buf: r.buf, pos: pos}
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, errTruncated(r.pos, 1)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, errTruncated(r.pos, 2)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errTruncated(r.pos, 4)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, errTruncated(r.pos, 8)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// bytes returns a zero-copy subslice of n bytes at the cursor and
// advances past it.
func (r *reader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, errTruncated(r.pos, n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// uleb128 decodes an unsigned LEB128 value, used for string lengths
// and class-data deltas (§4.D).
func (r *reader) uleb128() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errFormat(r.pos, "uleb128 overflow")
		}
	}
}

// uleb128p1 decodes a ULEB128p1 value (value+1 encoded; "no value"
// is stored as -1 i.e. the all-ones encoding). The class-def
// section's optional references are plain uint32 with NoIndex and do
// not go through this decoder.
func (r *reader) uleb128p1() (int32, error) {
	v, err := r.uleb128()
	if err != nil {
		return 0, err
	}
	return int32(v) - 1, nil
}

// sleb128 decodes a signed LEB128 value, used in debug info (not
// consumed by this core beyond skipping it).
func (r *reader) sleb128() (int32, error) {
	var result int32
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.u8()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 32 {
			return 0, errFormat(r.pos, "sleb128 overflow")
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func errTruncated(pos, need int) error {
	return diag.New(diag.KindFormat, locAt(pos), "truncated: need "+itoa(need)+" more bytes")
}

func errFormat(pos int, msg string) error {
	return diag.New(diag.KindFormat, locAt(pos), msg)
}

func locAt(pos int) string {
	return "offset:0x" + hex(pos)
}
