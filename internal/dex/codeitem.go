/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// CodeItem is one method body's code_item: register counts, and the
// instruction stream decoded into 16-bit code units (§3, §4.D "read
// insns_size 16-bit units directly").
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	TriesSize     uint16
	DebugInfoOff  uint32
	InsnsSize     uint32
	Insns         []uint16
}

// CodeItem reads the code item at off. Tries/handlers are skipped:
// this core does not model exception dispatch (§4.D).
func (p *Parser) CodeItem(off uint32) (CodeItem, error) {
	var ci CodeItem
	if off == 0 {
		return ci, errFormat(0, "code item offset must be non-zero")
	}
	r := newReader(p.buf).at(int(off))
	var err error
	if ci.RegistersSize, err = r.u16(); err != nil {
		return ci, err
	}
	if ci.InsSize, err = r.u16(); err != nil {
		return ci, err
	}
	if ci.OutsSize, err = r.u16(); err != nil {
		return ci, err
	}
	if ci.TriesSize, err = r.u16(); err != nil {
		return ci, err
	}
	if ci.DebugInfoOff, err = r.u32(); err != nil {
		return ci, err
	}
	if ci.InsnsSize, err = r.u32(); err != nil {
		return ci, err
	}
	raw, err := r.bytes(int(ci.InsnsSize) * 2)
	if err != nil {
		return ci, err
	}
	ci.Insns = bytesToUint16LE(raw)
	return ci, nil
}

// bytesToUint16LE decodes a little-endian byte run into a slice of
// uint16 code units. raw is itself a zero-copy subslice of the DEX
// blob, but this step allocates and writes a fresh []uint16 — DEX's
// code units are endianness-defined, so reinterpreting raw's backing
// array in place isn't portable; every decoder downstream of this one
// (opcode dispatch, operand extraction) then indexes a plain
// []uint16, not raw bytes.
func bytesToUint16LE(raw []byte) []uint16 {
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return out
}
