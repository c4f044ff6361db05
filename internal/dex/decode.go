/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// Decode decodes the instruction stream of one code item into the
// tagged instruction list described by §4.F. Offsets in the returned
// instructions are in 16-bit code units from the start of insns,
// matching branch/switch target encodings.
//
// On an unrecognized opcode or a length inconsistency mid-stream, the
// method returns the instructions decoded so far plus a decoder
// anomaly error (§7 "Decoder anomalies... The method is truncated at
// the anomaly"); callers proceed with the partial list and record the
// error as a non-fatal diagnostic.
func Decode(insns []uint16) ([]Insn, error) {
	out := make([]Insn, 0, len(insns))
	pc := 0
	for pc < len(insns) {
		op := byte(insns[pc] & 0xFF)
		info, ok := opcodeTable[op]
		if !ok {
			return out, errFormat(pc, "unrecognized opcode 0x"+hex(int(op)))
		}
		n := info.format.unitLen()
		if n == 0 || pc+n > len(insns) {
			return out, errFormat(pc, "instruction runs past end of insns")
		}
		insn := decodeOne(op, info, insns[pc:pc+n], pc)
		out = append(out, insn)
		pc += n
	}
	return out, nil
}

func decodeOne(op byte, info opInfo, units []uint16, pc int) Insn {
	b := base{off: pc, length: len(units)}
	hi := func(u uint16) byte { return byte(u >> 8) }
	lo4 := func(h byte) int { return int(h & 0xF) }
	hi4 := func(h byte) int { return int(h >> 4) }
	u16 := func(i int) uint16 { return units[i] }
	s16 := func(i int) int32 { return int32(int16(units[i])) }
	u32at := func(i int) uint32 { return uint32(units[i]) | uint32(units[i+1])<<16 }
	s32at := func(i int) int32 { return int32(u32at(i)) }

	switch info.family {
	case famConst, famConstWide:
		wide := info.family == famConstWide
		var v int64
		switch info.format {
		case fmt11n:
			h := hi(u16(0))
			nibble := byte(hi4(h)) << 4
			lit := int64(int8(nibble) >> 4) // sign-extend 4-bit literal
			return Const{base: b, Dest: lo4(h), Value: lit, Wide: wide}
		case fmt21s:
			reg := int(hi(u16(0)))
			v = int64(s16(1))
			return Const{base: b, Dest: reg, Value: v, Wide: wide}
		case fmt31i:
			reg := int(hi(u16(0)))
			v = int64(s32at(1))
			return Const{base: b, Dest: reg, Value: v, Wide: wide}
		case fmt21h:
			reg := int(hi(u16(0)))
			raw := int64(int16(u16(1)))
			if wide {
				v = raw << 48
			} else {
				v = int64(int32(raw) << 16)
			}
			return Const{base: b, Dest: reg, Value: v, Wide: wide}
		case fmt51l:
			reg := int(hi(u16(0)))
			v = int64(uint64(u16(1)) | uint64(u16(2))<<16 | uint64(u16(3))<<32 | uint64(u16(4))<<48)
			return Const{base: b, Dest: reg, Value: v, Wide: wide}
		}

	case famConstString:
		reg := int(hi(u16(0)))
		if info.format == fmt31c {
			return ConstString{base: b, Dest: reg, StringIdx: u32at(1)}
		}
		return ConstString{base: b, Dest: reg, StringIdx: uint32(u16(1))}

	case famConstClass:
		reg := int(hi(u16(0)))
		return ConstClass{base: b, Dest: reg, TypeIdx: uint32(u16(1))}

	case famMove, famMoveWide:
		wide := info.family == famMoveWide
		switch info.format {
		case fmt12x:
			h := hi(u16(0))
			return Move{base: b, Dest: lo4(h), Src: hi4(h), Wide: wide}
		case fmt22x:
			return Move{base: b, Dest: int(hi(u16(0))), Src: int(u16(1)), Wide: wide}
		case fmt32x:
			return Move{base: b, Dest: int(u16(1)), Src: int(u16(2)), Wide: wide}
		}

	case famMoveResult, famMoveResultWide:
		return MoveResult{base: b, Dest: int(hi(u16(0))), Wide: info.family == famMoveResultWide}

	case famMoveException:
		return MoveException{base: b, Dest: int(hi(u16(0)))}

	case famIGet, famIPut:
		h := hi(u16(0))
		a, o := lo4(h), hi4(h)
		kind := fieldKind(op - iGetFamilyBase(op, info.family))
		fieldIdx := uint32(u16(1))
		if info.family == famIGet {
			return IGet{base: b, Kind: kind, Dest: a, Object: o, FieldIdx: fieldIdx}
		}
		return IPut{base: b, Kind: kind, Src: a, Object: o, FieldIdx: fieldIdx}

	case famSGet, famSPut:
		reg := int(hi(u16(0)))
		kind := fieldKind(op - sGetFamilyBase(op, info.family))
		fieldIdx := uint32(u16(1))
		if info.family == famSGet {
			return SGet{base: b, Kind: kind, Dest: reg, FieldIdx: fieldIdx}
		}
		return SPut{base: b, Kind: kind, Src: reg, FieldIdx: fieldIdx}

	case famInvoke:
		h := hi(u16(0))
		count, g := hi4(h), lo4(h)
		methodIdx := uint32(u16(1))
		c, d, e, f := lo4(byte(u16(2))), hi4(byte(u16(2))), lo4(byte(u16(2)>>8)), hi4(byte(u16(2)>>8))
		regs := []int{c, d, e, f, g}[:count]
		return Invoke{base: b, Kind: invokeKindOf(op), Args: regs, MethodIdx: methodIdx}

	case famInvokeRange:
		count := int(hi(u16(0)))
		methodIdx := uint32(u16(1))
		first := int(u16(2))
		regs := make([]int, count)
		for i := range regs {
			regs[i] = first + i
		}
		return Invoke{base: b, Kind: invokeKindOf(op), Args: regs, MethodIdx: methodIdx, Range: true}

	case famReturn:
		return Return{base: b, HasValue: true, Src: int(hi(u16(0)))}
	case famReturnVoid:
		return Return{base: b, HasValue: false}

	case famThrow:
		return Throw{base: b, Src: int(hi(u16(0)))}

	case famGoto:
		switch info.format {
		case fmt10t:
			return Goto{base: b, Target: int(int8(hi(u16(0))))}
		case fmt20t:
			return Goto{base: b, Target: int(s16(1))}
		case fmt30t:
			return Goto{base: b, Target: int(s32at(1))}
		}

	case famIfTest:
		h := hi(u16(0))
		return IfTest{base: b, A: lo4(h), B: hi4(h), Target: int(s16(1))}

	case famIfTestz:
		return IfTestz{base: b, A: int(hi(u16(0))), Target: int(s16(1))}

	case famSwitch:
		return Switch{base: b, Key: int(hi(u16(0)))}

	case famFillArrayData:
		return FillArrayData{base: b, Array: int(hi(u16(0)))}

	case famNop:
		return Nop{base: b}
	}

	return Other{base: b, Opcode: op}
}

// iGetFamilyBase and sGetFamilyBase return the first opcode of the
// 7-member family op belongs to, so fieldKindOf (op - base) recovers
// int/wide/object/boolean/byte/char/short.
func iGetFamilyBase(op byte, fam family) byte {
	if fam == famIGet {
		return 0x52
	}
	return 0x59
}

func sGetFamilyBase(op byte, fam family) byte {
	if fam == famSGet {
		return 0x60
	}
	return 0x67
}

// invokeKindOf maps an invoke opcode (0x6e-0x72, or its /range
// counterpart 0x74-0x78) to its InvokeKind.
func invokeKindOf(op byte) invokeKind {
	if op >= 0x74 {
		op -= 0x74 - 0x6e
	}
	switch op {
	case 0x6e:
		return InvokeVirtual
	case 0x6f:
		return InvokeSuper
	case 0x70:
		return InvokeDirect
	case 0x71:
		return InvokeStatic
	case 0x72:
		return InvokeInterface
	default:
		return InvokeVirtual
	}
}
