/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package binxml

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	stringFlagUTF8 = 1 << 8
)

// stringTable is the AXML string pool: decoded once, then indexed by
// the chunk stream's various *_idx fields.
type stringTable struct {
	values []string
}

func (t stringTable) get(idx uint32) (string, error) {
	if idx == 0xFFFFFFFF {
		return "", nil
	}
	if int(idx) >= len(t.values) {
		return "", fmt.Errorf("string pool index %d out of range (%d entries)", idx, len(t.values))
	}
	return t.values[idx], nil
}

// parseStringTable decodes the chunkStringTable body: a header giving
// string/style counts, a flags word, offsets into the data section,
// then the data section itself (UTF-8 or UTF-16 per the flags word).
func parseStringTable(r io.Reader, n int64) (stringTable, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return stringTable{}, err
	}
	if len(raw) < 20 {
		return stringTable{}, fmt.Errorf("string pool header truncated")
	}
	stringCount := binary.LittleEndian.Uint32(raw[0:4])
	styleCount := binary.LittleEndian.Uint32(raw[4:8])
	flags := binary.LittleEndian.Uint32(raw[8:12])
	stringsStart := binary.LittleEndian.Uint32(raw[12:16])
	_ = styleCount

	utf8Flagged := flags&stringFlagUTF8 != 0

	offsets := make([]uint32, stringCount)
	for i := uint32(0); i < stringCount; i++ {
		off := 20 + i*4
		if int(off+4) > len(raw) {
			return stringTable{}, fmt.Errorf("string pool offsets truncated")
		}
		offsets[i] = binary.LittleEndian.Uint32(raw[off : off+4])
	}

	out := make([]string, stringCount)
	for i, off := range offsets {
		// stringsStart counts from the start of the chunk, chunk header
		// included, while raw begins just after that header.
		abs := int(stringsStart) - chunkHeaderSize + int(off)
		s, err := decodeTableString(raw, abs, utf8Flagged)
		if err != nil {
			return stringTable{}, fmt.Errorf("string %d: %w", i, err)
		}
		out[i] = s
	}
	return stringTable{values: out}, nil
}

// decodeTableString reads one length-prefixed entry from the string
// pool's data section, UTF-8 or UTF-16LE depending on the pool-wide
// flag.
func decodeTableString(raw []byte, at int, utf8 bool) (string, error) {
	if at < 0 || at >= len(raw) {
		return "", fmt.Errorf("offset %d out of range", at)
	}
	if utf8 {
		// UTF-8 pool: a UTF-16 length (in characters, usually redundant
		// with the byte length) followed by the UTF-8 byte length, both
		// using the 1-or-2-byte high-bit-continuation encoding.
		_, n1 := readUTF8Len(raw, at)
		length, n2 := readUTF8Len(raw, at+n1)
		start := at + n1 + n2
		end := start + length
		if end > len(raw) {
			return "", fmt.Errorf("string runs past pool end")
		}
		return string(raw[start:end]), nil
	}
	length, n := readUTF16Len(raw, at)
	start := at + n
	end := start + length*2
	if end > len(raw) {
		return "", fmt.Errorf("string runs past pool end")
	}
	return decodeUTF16LE(raw[start:end]), nil
}

// readUTF8Len reads the AXML variable-length size prefix used in UTF-8
// string pools: one byte if < 0x80, else a 2-byte big-endian value
// with the top bit set on the first byte.
func readUTF8Len(raw []byte, at int) (length, consumed int) {
	if at >= len(raw) {
		return 0, 0
	}
	b0 := raw[at]
	if b0&0x80 == 0 {
		return int(b0), 1
	}
	if at+1 >= len(raw) {
		return 0, 1
	}
	return int(b0&0x7f)<<8 | int(raw[at+1]), 2
}

// readUTF16Len is readUTF8Len's UTF-16 analogue: one 16-bit unit
// normally, two when the high bit of the first unit is set.
func readUTF16Len(raw []byte, at int) (length, consumedBytes int) {
	if at+2 > len(raw) {
		return 0, 0
	}
	u0 := binary.LittleEndian.Uint16(raw[at : at+2])
	if u0&0x8000 == 0 {
		return int(u0), 2
	}
	if at+4 > len(raw) {
		return 0, 2
	}
	u1 := binary.LittleEndian.Uint16(raw[at+2 : at+4])
	return int(u0&0x7fff)<<16 | int(u1), 4
}

func decodeUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i : 2*i+2])
	}
	return decodeUTF16Units(units)
}

// decodeUTF16Units converts UTF-16 code units (with surrogate pairs)
// to a Go string, stopping at an embedded NUL terminator if present.
func decodeUTF16Units(units []uint16) string {
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u == 0 {
			break
		}
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) {
			lo := units[i+1]
			if lo >= 0xDC00 && lo <= 0xDFFF {
				r := (rune(u-0xD800) << 10) | rune(lo-0xDC00)
				runes = append(runes, r+0x10000)
				i++
				continue
			}
		}
		runes = append(runes, rune(u))
	}
	return string(runes)
}
