/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package binxml

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// parser holds the decoding state shared across chunks: the string
// pool and the resource-id map used to recover attribute names that
// obfuscated/minimized manifests omit from the string pool (the same
// fallback avast/apkparser applies).
type parser struct {
	strings     stringTable
	resourceIDs []uint32
}

func (p *parser) parseResourceIds(r io.Reader, n int64) error {
	if n%4 != 0 {
		return fmt.Errorf("invalid resource-ids chunk size")
	}
	count := n / 4
	for i := int64(0); i < count; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		p.resourceIDs = append(p.resourceIDs, id)
	}
	return nil
}

func (p *parser) parseNsStart(r io.Reader) (*Event, error) {
	_, _, err := p.readNsPair(r)
	if err != nil {
		return nil, err
	}
	return &Event{Kind: EventStartNamespace}, nil
}

func (p *parser) parseNsEnd(r io.Reader) (*Event, error) {
	if _, err := io.CopyN(io.Discard, r, 8); err != nil {
		return nil, err
	}
	return &Event{Kind: EventEndNamespace}, nil
}

func (p *parser) readNsPair(r io.Reader) (local, space string, err error) {
	var idx uint32
	if err = binary.Read(r, binary.LittleEndian, &idx); err != nil {
		return
	}
	if local, err = p.strings.get(idx); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &idx); err != nil {
		return
	}
	space, err = p.strings.get(idx)
	return
}

// attrRecord is the fixed 20-byte ResXMLTree_attribute layout.
type attrRecord struct {
	NamespaceIdx uint32
	NameIdx      uint32
	RawValueIdx  uint32
	ValueSize    uint16
	ValueRes0    uint8
	ValueType    uint8
	ValueData    uint32
}

const attrRecordSize = 20

func (p *parser) parseTagStart(r io.Reader) (*Event, error) {
	var namespaceIdx, nameIdx uint32
	var attrStart, attrSize, attrCount uint16
	if err := binary.Read(r, binary.LittleEndian, &namespaceIdx); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &nameIdx); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &attrStart); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &attrSize); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &attrCount); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, r, 6); err != nil { // idIndex, classIndex, styleIndex
		return nil, err
	}

	namespace, err := p.strings.get(namespaceIdx)
	if err != nil {
		return nil, fmt.Errorf("decoding tag namespace: %w", err)
	}
	name, err := p.strings.get(nameIdx)
	if err != nil {
		return nil, fmt.Errorf("decoding tag name: %w", err)
	}

	ev := &Event{Kind: EventStartElement, Namespace: namespace, Name: name}
	for i := uint16(0); i < attrCount; i++ {
		var rec attrRecord
		if err := binary.Read(r, binary.LittleEndian, &rec.NamespaceIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.NameIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.RawValueIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.ValueSize); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.ValueRes0); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.ValueType); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rec.ValueData); err != nil {
			return nil, err
		}
		if int(attrSize) > attrRecordSize {
			if _, err := io.CopyN(io.Discard, r, int64(int(attrSize)-attrRecordSize)); err != nil {
				return nil, err
			}
		}

		attr, err := p.resolveAttr(rec, name)
		if err != nil {
			return nil, err
		}
		ev.Attrs = append(ev.Attrs, attr)
	}
	return ev, nil
}

// resolveAttr mirrors avast/apkparser's attribute-name fallback: most
// manifests carry the attribute name in the string pool at the same
// index the resource-id table uses, but minimized/obfuscated samples
// omit it, so the resource-id table's well-known name is used instead.
func (p *parser) resolveAttr(rec attrRecord, tagName string) (Attr, error) {
	var attrName string
	if rec.NameIdx < uint32(len(p.resourceIDs)) {
		attrName = wellKnownAttrName(p.resourceIDs[rec.NameIdx])
	}

	var fromStrings string
	if attrName == "" || tagName == "manifest" {
		s, err := p.strings.get(rec.NameIdx)
		if err == nil {
			fromStrings = s
		} else if attrName == "" {
			return Attr{}, fmt.Errorf("decoding attr name: %w", err)
		}
	}

	namespace, err := p.strings.get(rec.NamespaceIdx)
	if err != nil {
		return Attr{}, fmt.Errorf("decoding attr namespace: %w", err)
	}

	name := attrName
	if fromStrings != "" && (name == "" || fromStrings == "package" || hasPrefix(fromStrings, "platformBuildVersion")) {
		name = fromStrings
	}
	if name == "" {
		name = fromStrings
	}
	if namespace == "" && attrName != "" {
		namespace = "http://schemas.android.com/apk/res/android"
	}

	a := Attr{Namespace: namespace, Name: name, RawData: rec.ValueData}
	switch rec.ValueType {
	case 0x03: // TYPE_STRING
		a.Type = AttrTypeString
		a.Value, err = p.strings.get(rec.ValueData)
		if err != nil {
			return Attr{}, fmt.Errorf("decoding attr string value: %w", err)
		}
	case 0x12: // TYPE_INT_BOOLEAN
		a.Type = AttrTypeIntBool
		a.Value = strconv.FormatBool(rec.ValueData != 0)
	case 0x11: // TYPE_INT_HEX
		a.Type = AttrTypeIntHex
		a.Value = fmt.Sprintf("0x%x", rec.ValueData)
	case 0x01: // TYPE_REFERENCE
		a.Type = AttrTypeReference
		a.Value = fmt.Sprintf("@%x", rec.ValueData)
	default:
		a.Type = AttrTypeIntDec
		a.Value = strconv.FormatInt(int64(int32(rec.ValueData)), 10)
	}
	return a, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (p *parser) parseTagEnd(r io.Reader) (*Event, error) {
	local, space, err := p.readNsPair(r)
	if err != nil {
		return nil, err
	}
	return &Event{Kind: EventEndElement, Namespace: local, Name: space}, nil
}

func (p *parser) parseText(r io.Reader) (*Event, error) {
	var idx uint32
	if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
		return nil, err
	}
	text, err := p.strings.get(idx)
	if err != nil {
		return nil, fmt.Errorf("decoding text: %w", err)
	}
	if _, err := io.CopyN(io.Discard, r, 8); err != nil {
		return nil, err
	}
	return &Event{Kind: EventText, Text: text}, nil
}
