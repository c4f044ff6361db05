/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package dextest assembles minimal, byte-accurate DEX blobs in memory
// for tests of packages that sit outside internal/dex — internal/resolve
// and internal/expr in particular — and so cannot reach dex's
// unexported pool encoders the way dex's own _test.go files can. It is
// a fixture builder only: every value it emits is owned and read back
// by internal/dex's real parser, never by a second hand-rolled decoder.
package dextest

import (
	"encoding/binary"

	"github.com/jacobin-labs/apkscope/internal/dex"
)

const headerSize = 0x70
const noSuperclass = 0xffffffff

type protoEntry struct {
	shorty uint32
	ret    uint32
	params []uint32
}

type fieldEntry struct{ class, typ, name uint32 }
type methodEntry struct{ class, proto, name uint32 }

type memberField struct {
	fieldIdx uint32
	access   uint32
}

type memberMethod struct {
	methodIdx uint32
	access    uint32
	hasCode   bool
	registers uint16
	insSize   uint16
	outSize   uint16
	insns     []uint16
}

type classEntry struct {
	classType uint32
	super     uint32
	ifaces    []uint32
	static    []memberField
	instance  []memberField
	direct    []memberMethod
	virtual   []memberMethod
}

// Builder accumulates interned pool entries and class declarations
// until Build assembles them into one DEX blob.
type Builder struct {
	strs    []string
	strIdx  map[string]uint32
	types   []uint32 // string idx per type, in type-pool order
	typeIdx map[string]uint32
	protos  []protoEntry
	fields  []fieldEntry
	methods []methodEntry
	classes []classEntry
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{strIdx: map[string]uint32{}, typeIdx: map[string]uint32{}}
}

// String interns s (ASCII only — the fixtures this package serves never
// need MUTF-8's surrogate-pair path) and returns its string-pool index.
func (b *Builder) String(s string) uint32 {
	if idx, ok := b.strIdx[s]; ok {
		return idx
	}
	idx := uint32(len(b.strs))
	b.strs = append(b.strs, s)
	b.strIdx[s] = idx
	return idx
}

// Type interns descriptor (e.g. "Landroid/webkit/WebView;") and returns
// its type-pool index.
func (b *Builder) Type(descriptor string) uint32 {
	if idx, ok := b.typeIdx[descriptor]; ok {
		return idx
	}
	sidx := b.String(descriptor)
	idx := uint32(len(b.types))
	b.types = append(b.types, sidx)
	b.typeIdx[descriptor] = idx
	return idx
}

// Proto interns a (return, params...) prototype and returns its
// proto-pool index. The shorty descriptor is derived but never
// inspected by any caller this package serves, so its exact form
// doesn't matter beyond being present.
func (b *Builder) Proto(ret string, params ...string) uint32 {
	p := protoEntry{shorty: b.String(shortyOf(ret, params)), ret: b.Type(ret)}
	for _, t := range params {
		p.params = append(p.params, b.Type(t))
	}
	idx := uint32(len(b.protos))
	b.protos = append(b.protos, p)
	return idx
}

func shortyOf(ret string, params []string) string {
	letter := func(t string) byte {
		if t == "" {
			return 'V'
		}
		if t[0] == 'L' || t[0] == '[' {
			return 'L'
		}
		return t[0]
	}
	out := make([]byte, 0, len(params)+1)
	out = append(out, letter(ret))
	for _, p := range params {
		out = append(out, letter(p))
	}
	return string(out)
}

// Field interns a field-ref (class, type, name) and returns its
// field-pool index.
func (b *Builder) Field(class, typ, name string) uint32 {
	f := fieldEntry{class: b.Type(class), typ: b.Type(typ), name: b.String(name)}
	idx := uint32(len(b.fields))
	b.fields = append(b.fields, f)
	return idx
}

// Method interns a method-ref (class, params, ret, name) and returns
// its method-pool index. Interning a method-ref does not declare it in
// any class's class_data — callers that need a resolvable definition
// must also register it via AddDirectMethod/AddVirtualMethod on a
// Class.
func (b *Builder) Method(class string, params []string, ret, name string) uint32 {
	proto := b.Proto(ret, params...)
	m := methodEntry{class: b.Type(class), proto: proto, name: b.String(name)}
	idx := uint32(len(b.methods))
	b.methods = append(b.methods, m)
	return idx
}

// Class registers a class def for descriptor. super == "" means no
// superclass (java.lang.Object). The returned index identifies this
// class for the AddXxxField/AddXxxMethod calls below.
func (b *Builder) Class(descriptor, super string, interfaces ...string) int {
	ce := classEntry{classType: b.Type(descriptor)}
	if super == "" {
		ce.super = noSuperclass
	} else {
		ce.super = b.Type(super)
	}
	for _, i := range interfaces {
		ce.ifaces = append(ce.ifaces, b.Type(i))
	}
	idx := len(b.classes)
	b.classes = append(b.classes, ce)
	return idx
}

// AddStaticField declares fieldIdx (from Field) as a static field of
// classDef. Fields must be added in ascending fieldIdx order within
// each member list, matching class_data_item's delta encoding.
func (b *Builder) AddStaticField(classDef int, fieldIdx, access uint32) {
	b.classes[classDef].static = append(b.classes[classDef].static, memberField{fieldIdx, access})
}

// AddInstanceField is AddStaticField's instance-field counterpart.
func (b *Builder) AddInstanceField(classDef int, fieldIdx, access uint32) {
	b.classes[classDef].instance = append(b.classes[classDef].instance, memberField{fieldIdx, access})
}

// AddDirectMethod declares methodIdx (from Method) as a direct method
// of classDef with a code item built from insns — an already-assembled
// 16-bit instruction stream in the encoding internal/dex's decoder
// expects. Methods must be added in ascending methodIdx order within
// each member list.
func (b *Builder) AddDirectMethod(classDef int, methodIdx, access uint32, registers, insSize, outSize uint16, insns []uint16) {
	b.classes[classDef].direct = append(b.classes[classDef].direct, memberMethod{
		methodIdx: methodIdx, access: access, hasCode: true,
		registers: registers, insSize: insSize, outSize: outSize, insns: insns,
	})
}

// AddVirtualMethod is AddDirectMethod's virtual-method counterpart.
func (b *Builder) AddVirtualMethod(classDef int, methodIdx, access uint32, registers, insSize, outSize uint16, insns []uint16) {
	b.classes[classDef].virtual = append(b.classes[classDef].virtual, memberMethod{
		methodIdx: methodIdx, access: access, hasCode: true,
		registers: registers, insSize: insSize, outSize: outSize, insns: insns,
	})
}

// AddVirtualMethodNoCode declares methodIdx as a virtual method with no
// code item, the class_data shape for an abstract or native method.
func (b *Builder) AddVirtualMethodNoCode(classDef int, methodIdx, access uint32) {
	b.classes[classDef].virtual = append(b.classes[classDef].virtual, memberMethod{methodIdx: methodIdx, access: access})
}

func appendULEB128(data []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			data = append(data, c|0x80)
			continue
		}
		return append(data, c)
	}
}

func appendU32(data []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(data, b[:]...)
}

func appendU16(data []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(data, b[:]...)
}

func appendCodeItem(data []byte, m memberMethod) []byte {
	data = appendU16(data, m.registers)
	data = appendU16(data, m.insSize)
	data = appendU16(data, m.outSize)
	data = appendU16(data, 0) // tries_size: exception tables are not modeled
	data = appendU32(data, 0) // debug_info_off: unused by this core
	data = appendU32(data, uint32(len(m.insns)))
	for _, u := range m.insns {
		data = appendU16(data, u)
	}
	return data
}

func appendEncodedFields(data []byte, fields []memberField) []byte {
	var prev uint32
	for _, f := range fields {
		data = appendULEB128(data, f.fieldIdx-prev)
		data = appendULEB128(data, f.access)
		prev = f.fieldIdx
	}
	return data
}

func appendEncodedMethods(data []byte, methods []memberMethod, codeOffs []uint32) []byte {
	var prev uint32
	for i, m := range methods {
		data = appendULEB128(data, m.methodIdx-prev)
		data = appendULEB128(data, m.access)
		data = appendULEB128(data, codeOffs[i])
		prev = m.methodIdx
	}
	return data
}

// Build assembles every interned pool entry and class declaration into
// a complete DEX blob: header, the six fixed-size id/def tables, then a
// data section holding string bytes, proto parameter lists, interface
// lists, code items and class_data — in that layout order, the same
// one a real dex file uses.
func (b *Builder) Build() []byte {
	stringIDsSize := uint32(len(b.strs))
	typeIDsSize := uint32(len(b.types))
	protoIDsSize := uint32(len(b.protos))
	fieldIDsSize := uint32(len(b.fields))
	methodIDsSize := uint32(len(b.methods))
	classDefsSize := uint32(len(b.classes))

	stringIDsOff := uint32(headerSize)
	typeIDsOff := stringIDsOff + stringIDsSize*4
	protoIDsOff := typeIDsOff + typeIDsSize*4
	fieldIDsOff := protoIDsOff + protoIDsSize*12
	methodIDsOff := fieldIDsOff + fieldIDsSize*8
	classDefsOff := methodIDsOff + methodIDsSize*8
	dataStart := classDefsOff + classDefsSize*32

	var data []byte
	abs := func() uint32 { return dataStart + uint32(len(data)) }

	strOff := make([]uint32, len(b.strs))
	for i, s := range b.strs {
		strOff[i] = abs()
		data = appendULEB128(data, uint32(len(s))) // ASCII: utf16 units == byte length
		data = append(data, s...)
	}

	protoParamsOff := make([]uint32, len(b.protos))
	for i, p := range b.protos {
		if len(p.params) == 0 {
			continue
		}
		protoParamsOff[i] = abs()
		data = appendU32(data, uint32(len(p.params)))
		for _, t := range p.params {
			data = appendU16(data, uint16(t))
		}
	}

	ifacesOff := make([]uint32, len(b.classes))
	for i, c := range b.classes {
		if len(c.ifaces) == 0 {
			continue
		}
		ifacesOff[i] = abs()
		data = appendU32(data, uint32(len(c.ifaces)))
		for _, t := range c.ifaces {
			data = appendU16(data, uint16(t))
		}
	}

	directCodeOff := make([][]uint32, len(b.classes))
	virtualCodeOff := make([][]uint32, len(b.classes))
	for ci, c := range b.classes {
		directCodeOff[ci] = make([]uint32, len(c.direct))
		for mi, m := range c.direct {
			if !m.hasCode {
				continue
			}
			directCodeOff[ci][mi] = abs()
			data = appendCodeItem(data, m)
		}
		virtualCodeOff[ci] = make([]uint32, len(c.virtual))
		for mi, m := range c.virtual {
			if !m.hasCode {
				continue
			}
			virtualCodeOff[ci][mi] = abs()
			data = appendCodeItem(data, m)
		}
	}

	classDataOff := make([]uint32, len(b.classes))
	for ci, c := range b.classes {
		if len(c.static)+len(c.instance)+len(c.direct)+len(c.virtual) == 0 {
			continue
		}
		classDataOff[ci] = abs()
		data = appendULEB128(data, uint32(len(c.static)))
		data = appendULEB128(data, uint32(len(c.instance)))
		data = appendULEB128(data, uint32(len(c.direct)))
		data = appendULEB128(data, uint32(len(c.virtual)))
		data = appendEncodedFields(data, c.static)
		data = appendEncodedFields(data, c.instance)
		data = appendEncodedMethods(data, c.direct, directCodeOff[ci])
		data = appendEncodedMethods(data, c.virtual, virtualCodeOff[ci])
	}

	buf := make([]byte, dataStart)

	off := stringIDsOff
	for _, so := range strOff {
		binary.LittleEndian.PutUint32(buf[off:], so)
		off += 4
	}
	off = typeIDsOff
	for _, sidx := range b.types {
		binary.LittleEndian.PutUint32(buf[off:], sidx)
		off += 4
	}
	off = protoIDsOff
	for i, p := range b.protos {
		binary.LittleEndian.PutUint32(buf[off:], p.shorty)
		binary.LittleEndian.PutUint32(buf[off+4:], p.ret)
		po := uint32(0)
		if len(p.params) != 0 {
			po = protoParamsOff[i]
		}
		binary.LittleEndian.PutUint32(buf[off+8:], po)
		off += 12
	}
	off = fieldIDsOff
	for _, f := range b.fields {
		binary.LittleEndian.PutUint16(buf[off:], uint16(f.class))
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(f.typ))
		binary.LittleEndian.PutUint32(buf[off+4:], f.name)
		off += 8
	}
	off = methodIDsOff
	for _, m := range b.methods {
		binary.LittleEndian.PutUint16(buf[off:], uint16(m.class))
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(m.proto))
		binary.LittleEndian.PutUint32(buf[off+4:], m.name)
		off += 8
	}
	off = classDefsOff
	for i, c := range b.classes {
		binary.LittleEndian.PutUint32(buf[off:], c.classType)
		binary.LittleEndian.PutUint32(buf[off+4:], 0) // access_flags: not read back by any fixture
		binary.LittleEndian.PutUint32(buf[off+8:], c.super)
		io := uint32(0)
		if len(c.ifaces) != 0 {
			io = ifacesOff[i]
		}
		binary.LittleEndian.PutUint32(buf[off+12:], io)
		binary.LittleEndian.PutUint32(buf[off+16:], noSuperclass) // source_file_idx: absent
		binary.LittleEndian.PutUint32(buf[off+20:], 0)             // annotations_off
		binary.LittleEndian.PutUint32(buf[off+24:], classDataOff[i])
		binary.LittleEndian.PutUint32(buf[off+28:], 0) // static_values_off
		off += 32
	}

	buf = append(buf, data...)

	fileSize := uint32(len(buf))
	writeHeader(buf, fileSize, stringIDsSize, stringIDsOff, typeIDsSize, typeIDsOff,
		protoIDsSize, protoIDsOff, fieldIDsSize, fieldIDsOff, methodIDsSize, methodIDsOff,
		classDefsSize, classDefsOff, dataStart, fileSize-dataStart)

	return buf
}

func writeHeader(buf []byte, fileSize, stringIDsSize, stringIDsOff, typeIDsSize, typeIDsOff,
	protoIDsSize, protoIDsOff, fieldIDsSize, fieldIDsOff, methodIDsSize, methodIDsOff,
	classDefsSize, classDefsOff, dataOff, dataSize uint32) {
	copy(buf[0:8], []byte("dex\n035\x00"))
	// checksum (8:12) and signature (12:32) are left zero: parseHeader
	// never validates them.
	binary.LittleEndian.PutUint32(buf[32:], fileSize)
	binary.LittleEndian.PutUint32(buf[36:], headerSize)
	binary.LittleEndian.PutUint32(buf[40:], 0x12345678)
	binary.LittleEndian.PutUint32(buf[44:], 0)
	binary.LittleEndian.PutUint32(buf[48:], 0)
	binary.LittleEndian.PutUint32(buf[52:], 0)
	binary.LittleEndian.PutUint32(buf[56:], stringIDsSize)
	binary.LittleEndian.PutUint32(buf[60:], stringIDsOff)
	binary.LittleEndian.PutUint32(buf[64:], typeIDsSize)
	binary.LittleEndian.PutUint32(buf[68:], typeIDsOff)
	binary.LittleEndian.PutUint32(buf[72:], protoIDsSize)
	binary.LittleEndian.PutUint32(buf[76:], protoIDsOff)
	binary.LittleEndian.PutUint32(buf[80:], fieldIDsSize)
	binary.LittleEndian.PutUint32(buf[84:], fieldIDsOff)
	binary.LittleEndian.PutUint32(buf[88:], methodIDsSize)
	binary.LittleEndian.PutUint32(buf[92:], methodIDsOff)
	binary.LittleEndian.PutUint32(buf[96:], classDefsSize)
	binary.LittleEndian.PutUint32(buf[100:], classDefsOff)
	binary.LittleEndian.PutUint32(buf[104:], dataSize)
	binary.LittleEndian.PutUint32(buf[108:], dataOff)
}

// BuildParser assembles the blob and parses it, the convenience most
// callers want.
func (b *Builder) BuildParser() (*dex.Parser, error) {
	return dex.New(b.Build())
}
