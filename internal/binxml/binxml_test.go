/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package binxml

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func writeChunkHeader(buf *bytes.Buffer, id, headerLen uint16, totalLen uint32) {
	binary.Write(buf, binary.LittleEndian, id)
	binary.Write(buf, binary.LittleEndian, headerLen)
	binary.Write(buf, binary.LittleEndian, totalLen)
}

// buildUTF8StringPoolChunk encodes a single-string UTF-8 AXML string pool chunk
// (header + one offset + one length-prefixed entry), matching the
// layout parseStringTable expects.
func buildUTF8StringPoolChunk(s string) []byte {
	var data bytes.Buffer
	// header: stringCount, styleCount, flags, stringsStart, stylesStart
	binary.Write(&data, binary.LittleEndian, uint32(1))
	binary.Write(&data, binary.LittleEndian, uint32(0))
	binary.Write(&data, binary.LittleEndian, uint32(stringFlagUTF8))
	binary.Write(&data, binary.LittleEndian, uint32(32)) // stringsStart: 8 (chunk header) + 20 (pool header) + 1*4 (offsets)
	binary.Write(&data, binary.LittleEndian, uint32(0))
	// offsets
	binary.Write(&data, binary.LittleEndian, uint32(0))
	// entry: utf16-len prefix, utf8-byte-len prefix, bytes
	data.WriteByte(byte(len(s)))
	data.WriteByte(byte(len(s)))
	data.WriteString(s)

	var chunk bytes.Buffer
	writeChunkHeader(&chunk, chunkStringTable, 8, uint32(8+data.Len()))
	chunk.Write(data.Bytes())
	return chunk.Bytes()
}

func buildTagStartChunk(nameIdx uint32) []byte {
	var body bytes.Buffer
	body.Write(make([]byte, 8)) // line number + 0xFFFFFFFF placeholder
	binary.Write(&body, binary.LittleEndian, uint32(0xFFFFFFFF)) // namespaceIdx
	binary.Write(&body, binary.LittleEndian, nameIdx)
	binary.Write(&body, binary.LittleEndian, uint16(20)) // attrStart
	binary.Write(&body, binary.LittleEndian, uint16(20)) // attrSize
	binary.Write(&body, binary.LittleEndian, uint16(0))  // attrCount
	body.Write(make([]byte, 6))                          // idIndex, classIndex, styleIndex

	var chunk bytes.Buffer
	writeChunkHeader(&chunk, chunkXmlTagStart, 8, uint32(8+body.Len()))
	chunk.Write(body.Bytes())
	return chunk.Bytes()
}

func buildTagEndChunk(nameIdx uint32) []byte {
	var body bytes.Buffer
	body.Write(make([]byte, 8))
	binary.Write(&body, binary.LittleEndian, uint32(0xFFFFFFFF)) // namespaceIdx
	binary.Write(&body, binary.LittleEndian, nameIdx)

	var chunk bytes.Buffer
	writeChunkHeader(&chunk, chunkXmlTagEnd, 8, uint32(8+body.Len()))
	chunk.Write(body.Bytes())
	return chunk.Bytes()
}

func buildUTF16StringPoolChunk(s string) []byte {
	units := []uint16{}
	for _, r := range s {
		units = append(units, uint16(r))
	}

	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, uint32(1))
	binary.Write(&data, binary.LittleEndian, uint32(0))
	binary.Write(&data, binary.LittleEndian, uint32(0)) // no UTF8 flag
	binary.Write(&data, binary.LittleEndian, uint32(32))
	binary.Write(&data, binary.LittleEndian, uint32(0))
	binary.Write(&data, binary.LittleEndian, uint32(0)) // offset

	binary.Write(&data, binary.LittleEndian, uint16(len(units))) // utf16 length prefix
	for _, u := range units {
		binary.Write(&data, binary.LittleEndian, u)
	}
	binary.Write(&data, binary.LittleEndian, uint16(0)) // NUL terminator

	var chunk bytes.Buffer
	writeChunkHeader(&chunk, chunkStringTable, 8, uint32(8+data.Len()))
	chunk.Write(data.Bytes())
	return chunk.Bytes()
}

func TestParseStringTableDecodesUTF8Pool(t *testing.T) {
	chunk := buildUTF8StringPoolChunk("com.example.app")
	// strip the chunk header the way Parse does before calling parseStringTable.
	body := bytes.NewReader(chunk[chunkHeaderSize:])
	tbl, err := parseStringTable(body, int64(len(chunk)-chunkHeaderSize))
	if err != nil {
		t.Fatalf("parseStringTable: %v", err)
	}
	got, err := tbl.get(0)
	if err != nil {
		t.Fatalf("get(0): %v", err)
	}
	if got != "com.example.app" {
		t.Fatalf("want %q, got %q", "com.example.app", got)
	}
}

func TestParseStringTableDecodesUTF16Pool(t *testing.T) {
	chunk := buildUTF16StringPoolChunk("café")
	body := bytes.NewReader(chunk[chunkHeaderSize:])
	tbl, err := parseStringTable(body, int64(len(chunk)-chunkHeaderSize))
	if err != nil {
		t.Fatalf("parseStringTable: %v", err)
	}
	got, err := tbl.get(0)
	if err != nil {
		t.Fatalf("get(0): %v", err)
	}
	if got != "café" {
		t.Fatalf("want %q, got %q", "café", got)
	}
}

func TestStringTableGetOutOfRangeIndexErrors(t *testing.T) {
	tbl := stringTable{values: []string{"a", "b"}}
	if _, err := tbl.get(5); err == nil {
		t.Fatalf("want error for out-of-range index")
	}
	if s, err := tbl.get(0xFFFFFFFF); err != nil || s != "" {
		t.Fatalf("want (\"\", nil) for the sentinel no-namespace index, got (%q, %v)", s, err)
	}
}

func TestParseDecodesOneElementDocument(t *testing.T) {
	pool := buildUTF8StringPoolChunk("manifest")
	tagStart := buildTagStartChunk(0)
	tagEnd := buildTagEndChunk(0)

	var doc bytes.Buffer
	total := uint32(8 + len(pool) + len(tagStart) + len(tagEnd))
	writeChunkHeader(&doc, 0x0003, 8, total)
	doc.Write(pool)
	doc.Write(tagStart)
	doc.Write(tagEnd)

	events, err := Parse(bytes.NewReader(doc.Bytes()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 events (start+end), got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventStartElement || events[0].Name != "manifest" {
		t.Fatalf("want start element %q, got %+v", "manifest", events[0])
	}
	if events[1].Kind != EventEndElement || events[1].Name != "manifest" {
		t.Fatalf("want end element %q, got %+v", "manifest", events[1])
	}
}
