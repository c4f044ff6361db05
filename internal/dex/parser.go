/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

import (
	"strconv"

	"github.com/jacobin-labs/apkscope/internal/diag"
)

// Parser is a bit-exact, random-access reader over one DEX blob
// (component D). Construction validates the header; every subsequent
// getter is a random-access query keyed by index into a pool, as
// required by §4.D. The backing buffer is held by reference — Parser
// never copies it — so a Parser can be shared read-only across the
// worker goroutines of the parallel call-graph builder (§5, §9).
type Parser struct {
	buf []byte
	hdr Header
}

// New parses the DEX header of buf (held by reference, not copied)
// and returns a Parser ready to answer random-access queries.
func New(buf []byte) (*Parser, error) {
	r := newReader(buf)
	hdr, err := parseHeader(r, len(buf))
	if err != nil {
		return nil, err
	}
	return &Parser{buf: buf, hdr: hdr}, nil
}

// Header returns the parsed DEX header.
func (p *Parser) Header() Header { return p.hdr }

// StringCount returns the number of entries in the string pool.
func (p *Parser) StringCount() int { return int(p.hdr.StringIDsSize) }

// String resolves a string-pool index to its decoded MUTF-8 content.
func (p *Parser) String(idx uint32) (string, error) {
	if idx >= p.hdr.StringIDsSize {
		return "", p.indexErr("string", idx)
	}
	idOff := p.hdr.StringIDsOff + idx*4
	r := newReader(p.buf).at(int(idOff))
	dataOff, err := r.u32()
	if err != nil {
		return "", err
	}
	dr := newReader(p.buf).at(int(dataOff))
	units, err := dr.uleb128()
	if err != nil {
		return "", err
	}
	// The content runs to the next NUL byte; we know its UTF-16 length
	// so decodeMUTF8 can stop precisely instead of scanning for NUL,
	// which also lets it reject an early embedded NUL as malformed.
	rest := p.buf[dr.pos:]
	return decodeMUTF8(rest, int(units))
}

// TypeCount returns the number of entries in the type pool.
func (p *Parser) TypeCount() int { return int(p.hdr.TypeIDsSize) }

// typeStringIdx returns the string-pool index backing a type id.
func (p *Parser) typeStringIdx(idx uint32) (uint32, error) {
	if idx >= p.hdr.TypeIDsSize {
		return 0, p.indexErr("type", idx)
	}
	off := p.hdr.TypeIDsOff + idx*4
	r := newReader(p.buf).at(int(off))
	return r.u32()
}

// TypeDescriptorOf resolves a type-pool index to its descriptor
// string, e.g. "Landroid/app/Activity;".
func (p *Parser) TypeDescriptorOf(idx uint32) (TypeDescriptor, error) {
	sidx, err := p.typeStringIdx(idx)
	if err != nil {
		return "", err
	}
	s, err := p.String(sidx)
	if err != nil {
		return "", err
	}
	return TypeDescriptor(s), nil
}

// ProtoCount returns the number of entries in the proto pool.
func (p *Parser) ProtoCount() int { return int(p.hdr.ProtoIDsSize) }

// Proto resolves a proto-pool index, eagerly reading its (small)
// parameter type-index list.
func (p *Parser) Proto(idx uint32) (ProtoID, error) {
	var pr ProtoID
	if idx >= p.hdr.ProtoIDsSize {
		return pr, p.indexErr("proto", idx)
	}
	off := p.hdr.ProtoIDsOff + idx*12
	r := newReader(p.buf).at(int(off))
	var err error
	if pr.ShortyIdx, err = r.u32(); err != nil {
		return pr, err
	}
	if pr.ReturnType, err = r.u32(); err != nil {
		return pr, err
	}
	if pr.ParamsOff, err = r.u32(); err != nil {
		return pr, err
	}
	if pr.ParamsOff != 0 {
		lr := newReader(p.buf).at(int(pr.ParamsOff))
		size, err := lr.u32()
		if err != nil {
			return pr, err
		}
		pr.ParamTypes = make([]uint32, size)
		for i := range pr.ParamTypes {
			v, err := lr.u16()
			if err != nil {
				return pr, err
			}
			pr.ParamTypes[i] = uint32(v)
		}
	}
	return pr, nil
}

// ProtoDescriptor renders a proto as the parenthesized parameter
// descriptors plus return descriptor, e.g. "(ILjava/lang/String;)V",
// the form the method-label convention (§6) requires.
func (p *Parser) ProtoDescriptor(idx uint32) (string, error) {
	pr, err := p.Proto(idx)
	if err != nil {
		return "", err
	}
	s := "("
	for _, t := range pr.ParamTypes {
		d, err := p.TypeDescriptorOf(t)
		if err != nil {
			return "", err
		}
		s += string(d)
	}
	s += ")"
	ret, err := p.TypeDescriptorOf(pr.ReturnType)
	if err != nil {
		return "", err
	}
	return s + string(ret), nil
}

// FieldCount returns the number of entries in the field-ref pool.
func (p *Parser) FieldCount() int { return int(p.hdr.FieldIDsSize) }

// FieldRef resolves a field-ref-pool index.
func (p *Parser) FieldRef(idx uint32) (FieldID, error) {
	var f FieldID
	if idx >= p.hdr.FieldIDsSize {
		return f, p.indexErr("field", idx)
	}
	off := p.hdr.FieldIDsOff + idx*8
	r := newReader(p.buf).at(int(off))
	cls, err := r.u16()
	if err != nil {
		return f, err
	}
	typ, err := r.u16()
	if err != nil {
		return f, err
	}
	name, err := r.u32()
	if err != nil {
		return f, err
	}
	f.ClassIdx, f.TypeIdx, f.NameIdx = uint32(cls), uint32(typ), name
	return f, nil
}

// FieldLabel renders "owner.field" in dotted form, per §4.H's
// FieldRef literal-formatting rule.
func (p *Parser) FieldLabel(idx uint32) (string, error) {
	f, err := p.FieldRef(idx)
	if err != nil {
		return "", err
	}
	cls, err := p.TypeDescriptorOf(f.ClassIdx)
	if err != nil {
		return "", err
	}
	name, err := p.String(f.NameIdx)
	if err != nil {
		return "", err
	}
	return cls.FQCN() + "." + name, nil
}

// MethodCount returns the number of entries in the method-ref pool.
func (p *Parser) MethodCount() int { return int(p.hdr.MethodIDsSize) }

// MethodRef resolves a method-ref-pool index.
func (p *Parser) MethodRef(idx uint32) (MethodID, error) {
	var m MethodID
	if idx >= p.hdr.MethodIDsSize {
		return m, p.indexErr("method", idx)
	}
	off := p.hdr.MethodIDsOff + idx*8
	r := newReader(p.buf).at(int(off))
	cls, err := r.u16()
	if err != nil {
		return m, err
	}
	proto, err := r.u16()
	if err != nil {
		return m, err
	}
	name, err := r.u32()
	if err != nil {
		return m, err
	}
	m.ClassIdx, m.ProtoIdx, m.NameIdx = uint32(cls), uint32(proto), name
	return m, nil
}

// MethodLabel renders the canonical method-label format (§6):
// L<slashed-class>;.<name>(<params>)<ret>.
func (p *Parser) MethodLabel(idx uint32) (string, error) {
	m, err := p.MethodRef(idx)
	if err != nil {
		return "", err
	}
	cls, err := p.TypeDescriptorOf(m.ClassIdx)
	if err != nil {
		return "", err
	}
	name, err := p.String(m.NameIdx)
	if err != nil {
		return "", err
	}
	proto, err := p.ProtoDescriptor(m.ProtoIdx)
	if err != nil {
		return "", err
	}
	return string(cls) + "." + name + proto, nil
}

// ClassDefCount returns the number of class defs in this DEX blob.
func (p *Parser) ClassDefCount() int { return int(p.hdr.ClassDefsSize) }

func (p *Parser) indexErr(what string, idx uint32) error {
	return diag.New(diag.KindIndex, what+"#"+strconv.FormatUint(uint64(idx), 10), "index out of range")
}
