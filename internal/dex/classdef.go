/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// ClassDef is one class_def_item: type, access flags, optional
// superclass, interfaces, optional source file, and the offsets into
// the class-data and static-values sections (§3).
type ClassDef struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32 // NoSuperclass if absent
	InterfacesOff   uint32
	SourceFileIdx   uint32 // NoIndex if absent
	AnnotationsOff  uint32
	ClassDataOff    uint32 // 0 if class has no declared members
	StaticValuesOff uint32
}

// NoIndex is the sentinel value for an absent optional index
// (superclass_idx, source_file_idx), per the DEX format's use of
// 0xffffffff ("NO_INDEX").
const NoIndex = 0xffffffff

// HasSuperclass reports whether this class def declares a superclass
// (false only for java.lang.Object).
func (c ClassDef) HasSuperclass() bool { return c.SuperclassIdx != NoIndex }

// ClassDef resolves a class-def-pool index (§4.D).
func (p *Parser) ClassDef(idx int) (ClassDef, error) {
	var c ClassDef
	if idx < 0 || idx >= int(p.hdr.ClassDefsSize) {
		return c, p.indexErr("class_def", uint32(idx))
	}
	off := p.hdr.ClassDefsOff + uint32(idx)*32
	r := newReader(p.buf).at(int(off))
	fields := []*uint32{
		&c.ClassIdx, &c.AccessFlags, &c.SuperclassIdx, &c.InterfacesOff,
		&c.SourceFileIdx, &c.AnnotationsOff, &c.ClassDataOff, &c.StaticValuesOff,
	}
	for _, f := range fields {
		v, err := r.u32()
		if err != nil {
			return c, err
		}
		*f = v
	}
	return c, nil
}

// Interfaces resolves a class def's declared interface list to type
// indices.
func (p *Parser) Interfaces(c ClassDef) ([]uint32, error) {
	if c.InterfacesOff == 0 {
		return nil, nil
	}
	r := newReader(p.buf).at(int(c.InterfacesOff))
	size, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, size)
	for i := range out {
		v, err := r.u16()
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// EncodedField is one static or instance field declared in class
// data: the absolute field-pool index (after delta accumulation) and
// its access flags.
type EncodedField struct {
	FieldIdx    uint32
	AccessFlags uint32
}

// EncodedMethod is one direct or virtual method declared in class
// data: the absolute method-pool index, access flags, and code-item
// offset (0 means no body — native or abstract, §3).
type EncodedMethod struct {
	MethodIdx   uint32
	AccessFlags uint32
	CodeOff     uint32
}

func (m EncodedMethod) HasCode() bool { return m.CodeOff != 0 }

// ClassData is the decoded class_data_item: the four delta-encoded
// member lists (§3, §4.D).
type ClassData struct {
	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod
}

// ClassData decodes the class-data section referenced by a class def.
// Returns a zero-value ClassData (no error) when the class declares
// no members at all, per §8's "classes with no methods" boundary
// case.
func (p *Parser) ClassData(c ClassDef) (ClassData, error) {
	var cd ClassData
	if c.ClassDataOff == 0 {
		return cd, nil
	}
	r := newReader(p.buf).at(int(c.ClassDataOff))

	staticCount, err := r.uleb128()
	if err != nil {
		return cd, err
	}
	instanceCount, err := r.uleb128()
	if err != nil {
		return cd, err
	}
	directCount, err := r.uleb128()
	if err != nil {
		return cd, err
	}
	virtualCount, err := r.uleb128()
	if err != nil {
		return cd, err
	}

	cd.StaticFields, err = readFields(r, int(staticCount))
	if err != nil {
		return cd, err
	}
	cd.InstanceFields, err = readFields(r, int(instanceCount))
	if err != nil {
		return cd, err
	}
	cd.DirectMethods, err = readMethods(r, int(directCount))
	if err != nil {
		return cd, err
	}
	cd.VirtualMethods, err = readMethods(r, int(virtualCount))
	if err != nil {
		return cd, err
	}
	return cd, nil
}

// readFields decodes a delta-encoded encoded_field list: the first
// entry's field_idx is absolute, every subsequent entry stores the
// delta from the prior absolute index (§4.D "implementers must sum
// cumulatively").
func readFields(r *reader, count int) ([]EncodedField, error) {
	out := make([]EncodedField, count)
	var prev uint32
	for i := 0; i < count; i++ {
		delta, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		flags, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		prev += delta
		out[i] = EncodedField{FieldIdx: prev, AccessFlags: flags}
	}
	return out, nil
}

// readMethods is readFields' analogue for encoded_method, which also
// carries a code_off after the access flags.
func readMethods(r *reader, count int) ([]EncodedMethod, error) {
	out := make([]EncodedMethod, count)
	var prev uint32
	for i := 0; i < count; i++ {
		delta, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		flags, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		codeOff, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		prev += delta
		out[i] = EncodedMethod{MethodIdx: prev, AccessFlags: flags, CodeOff: codeOff}
	}
	return out, nil
}
