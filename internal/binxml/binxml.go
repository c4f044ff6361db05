/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package binxml decodes Android's chunked binary XML format (component
// B): a string pool, an optional resource-map chunk, then a stream of
// namespace/element/text chunks. It is grounded directly on
// avast/apkparser's binxml.go chunk-reading structure, adapted from an
// encoding/xml-token-emitting design to a plain Event stream (spec.md
// never requires encoding/xml compatibility).
package binxml

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jacobin-labs/apkscope/internal/diag"
)

const (
	chunkStringTable = 0x0001
	chunkResourceIds = 0x0180
	chunkXmlNsStart  = 0x0100
	chunkXmlNsEnd    = 0x0101
	chunkXmlTagStart = 0x0102
	chunkXmlTagEnd   = 0x0103
	chunkXmlText     = 0x0104
	chunkHeaderSize  = 8
	chunkMaskXml     = 0x0100
)

// AttrType is the typed-value kind carried by an attribute (§4.B).
type AttrType int

const (
	AttrTypeString AttrType = iota
	AttrTypeIntBool
	AttrTypeIntHex
	AttrTypeIntDec
	AttrTypeFloat
	AttrTypeReference
	AttrTypeOther
)

// Attr is one resolved attribute: namespace/name already resolved from
// the string pool, Value already formatted per its typed kind.
type Attr struct {
	Namespace string
	Name      string
	Type      AttrType
	RawData   uint32
	Value     string
}

// EventKind distinguishes the five chunk kinds the Event stream carries.
type EventKind int

const (
	EventStartNamespace EventKind = iota
	EventEndNamespace
	EventStartElement
	EventEndElement
	EventText
)

// Event is one forward-only stream element (§4.B).
type Event struct {
	Kind      EventKind
	Namespace string
	Name      string
	Attrs     []Attr
	Text      string
}

// Parse decodes r's binary XML into a flat Event slice. r is read in
// full (AXML files are small — manifest-sized, not DEX-sized — so
// no streaming callback is needed by any SPEC_FULL caller).
func Parse(r io.Reader) ([]Event, error) {
	var p parser
	id, _, totalLen, err := parseChunkHeader(r)
	if err != nil {
		return nil, diag.New(diag.KindFormat, "AndroidManifest.xml", "truncated chunk header: "+err.Error())
	}
	_ = id
	if totalLen < chunkHeaderSize {
		return nil, diag.New(diag.KindFormat, "AndroidManifest.xml", "invalid top chunk length")
	}
	remaining := totalLen - chunkHeaderSize

	var events []Event
	var consumed uint32
	for consumed < remaining {
		cid, _, clen, err := parseChunkHeader(r)
		if err != nil {
			return events, diag.New(diag.KindFormat, "AndroidManifest.xml", "truncated chunk: "+err.Error())
		}
		if clen < chunkHeaderSize {
			return events, diag.New(diag.KindFormat, "AndroidManifest.xml", "invalid chunk length")
		}
		body := io.LimitReader(r, int64(clen)-chunkHeaderSize)

		switch cid {
		case chunkStringTable:
			p.strings, err = parseStringTable(body, int64(clen)-chunkHeaderSize)
		case chunkResourceIds:
			err = p.parseResourceIds(body, int64(clen)-chunkHeaderSize)
		default:
			if cid&chunkMaskXml == 0 {
				err = fmt.Errorf("unknown chunk id 0x%x", cid)
				break
			}
			// Skip line-number and the 0xFFFFFFFF comment placeholder.
			if _, err = io.CopyN(io.Discard, body, 8); err != nil {
				break
			}
			var ev *Event
			switch cid {
			case chunkXmlNsStart:
				ev, err = p.parseNsStart(body)
			case chunkXmlNsEnd:
				ev, err = p.parseNsEnd(body)
			case chunkXmlTagStart:
				ev, err = p.parseTagStart(body)
			case chunkXmlTagEnd:
				ev, err = p.parseTagEnd(body)
			case chunkXmlText:
				ev, err = p.parseText(body)
			default:
				err = fmt.Errorf("unknown xml chunk id 0x%x", cid)
			}
			if err == nil && ev != nil {
				events = append(events, *ev)
			}
		}
		if err != nil {
			return events, diag.New(diag.KindFormat, "AndroidManifest.xml", fmt.Sprintf("chunk 0x%x: %s", cid, err))
		}
		io.Copy(io.Discard, body) // drain any unread padding
		consumed += clen
	}
	return events, nil
}

func parseChunkHeader(r io.Reader) (id uint16, headerLen uint16, totalLen uint32, err error) {
	var hdr [8]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, 0, err
	}
	id = binary.LittleEndian.Uint16(hdr[0:2])
	headerLen = binary.LittleEndian.Uint16(hdr[2:4])
	totalLen = binary.LittleEndian.Uint32(hdr[4:8])
	return id, headerLen, totalLen, nil
}
