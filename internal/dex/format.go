/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// format identifies one of the Dalvik instruction encodings named in
// §4.F. The suffix matches the names used by the Dalvik bytecode
// reference (10t, 10x, 11n, ...).
type format int

const (
	fmtUnknown format = iota
	fmt10t
	fmt10x
	fmt11n
	fmt11x
	fmt12x
	fmt20t
	fmt21c
	fmt21h
	fmt21s
	fmt21t
	fmt22b
	fmt22c
	fmt22s
	fmt22t
	fmt22x
	fmt23x
	fmt30t
	fmt31c
	fmt31i
	fmt31t
	fmt32x
	fmt35c
	fmt3rc
	fmt51l
)

// unitLen returns the instruction's length in 16-bit code units.
func (f format) unitLen() int {
	switch f {
	case fmt10t, fmt10x, fmt11n, fmt11x, fmt12x:
		return 1
	case fmt20t, fmt21c, fmt21h, fmt21s, fmt21t, fmt22b, fmt22c, fmt22s, fmt22t, fmt22x, fmt23x:
		return 2
	case fmt30t, fmt31c, fmt31i, fmt31t, fmt32x, fmt35c, fmt3rc:
		return 3
	case fmt51l:
		return 5
	default:
		return 0
	}
}

// opInfo is one opcode's static metadata: its instruction format and
// the semantic family the decoder tags it as.
type opInfo struct {
	format format
	family family
}

// family is the semantic tag families enumerated in §4.F: the
// decoder recognizes control-flow forms so the expression builder can
// reset per basic block, but only const/move/field/invoke/return
// forms carry payload the builder actually interprets.
type family int

const (
	famOther family = iota
	famConst
	famConstWide
	famConstString
	famConstClass
	famMove
	famMoveWide
	famMoveResult
	famMoveResultWide
	famMoveException
	famIGet
	famIPut
	famSGet
	famSPut
	famInvoke
	famInvokeRange
	famReturn
	famReturnVoid
	famThrow
	famGoto
	famIfTest
	famIfTestz
	famSwitch
	famFillArrayData
	famNop
)

// fieldKind distinguishes the operand width/representation for the
// iget/iput/sget/sput families (§4.F "IGet{kind,...}").
type fieldKind int

const (
	fieldInt fieldKind = iota
	fieldWide
	fieldObject
	fieldBoolean
	fieldByte
	fieldChar
	fieldShort
)

// invokeKind distinguishes the five invoke-family opcodes (§3, §4.F).
type invokeKind int

const (
	InvokeVirtual invokeKind = iota
	InvokeSuper
	InvokeDirect
	InvokeStatic
	InvokeInterface
)

func (k invokeKind) String() string {
	switch k {
	case InvokeVirtual:
		return "virtual"
	case InvokeSuper:
		return "super"
	case InvokeDirect:
		return "direct"
	case InvokeStatic:
		return "static"
	case InvokeInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// opcodeTable maps every opcode byte this decoder recognizes to its
// format and semantic family. Opcodes outside the subset named by
// §4.F (array ops, unary/binary arithmetic, comparisons, casts, new
// instance/array) are still entered so the decoder can skip over them
// at the correct length — only their *family* is famOther — per
// §4.F's "control-flow forms are recognized... they are not otherwise
// modeled" and §8 invariant 2 (summed lengths must equal insns_size
// regardless of which opcodes carry semantic meaning).
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() map[byte]opInfo {
	t := make(map[byte]opInfo, 256)
	set := func(op byte, f format, fam family) { t[op] = opInfo{f, fam} }

	set(0x00, fmt10x, famNop)
	for op := byte(0x01); op <= 0x09; op++ {
		// move, move/from16, move/16 and their -wide/-object variants
		f := []format{fmt12x, fmt22x, fmt32x}[((op - 1) % 3)]
		fam := famMove
		if op >= 0x04 && op <= 0x06 {
			fam = famMoveWide
		}
		set(op, f, fam)
	}
	set(0x0a, fmt11x, famMoveResult)
	set(0x0b, fmt11x, famMoveResultWide)
	set(0x0c, fmt11x, famMoveResult) // move-result-object: dest is a reference, same tag
	set(0x0d, fmt11x, famMoveException)
	set(0x0e, fmt10x, famReturnVoid)
	set(0x0f, fmt11x, famReturn)
	set(0x10, fmt11x, famReturn) // return-wide
	set(0x11, fmt11x, famReturn) // return-object

	set(0x12, fmt11n, famConst)        // const/4
	set(0x13, fmt21s, famConst)        // const/16
	set(0x14, fmt31i, famConst)        // const
	set(0x15, fmt21h, famConst)        // const/high16
	set(0x16, fmt21s, famConstWide)    // const-wide/16
	set(0x17, fmt31i, famConstWide)    // const-wide/32
	set(0x18, fmt51l, famConstWide)    // const-wide
	set(0x19, fmt21h, famConstWide)    // const-wide/high16
	set(0x1a, fmt21c, famConstString)  // const-string
	set(0x1b, fmt31c, famConstString)  // const-string/jumbo
	set(0x1c, fmt21c, famConstClass)   // const-class

	set(0x1d, fmt11x, famOther) // monitor-enter
	set(0x1e, fmt11x, famOther) // monitor-exit
	set(0x1f, fmt21c, famOther) // check-cast
	set(0x20, fmt22c, famOther) // instance-of
	set(0x21, fmt12x, famOther) // array-length
	set(0x22, fmt21c, famOther) // new-instance
	set(0x23, fmt22c, famOther) // new-array
	set(0x24, fmt35c, famOther) // filled-new-array
	set(0x25, fmt3rc, famOther) // filled-new-array/range
	set(0x26, fmt31t, famFillArrayData)
	set(0x27, fmt11x, famThrow)
	set(0x28, fmt10t, famGoto)
	set(0x29, fmt20t, famGoto)
	set(0x2a, fmt30t, famGoto)
	set(0x2b, fmt31t, famSwitch) // packed-switch
	set(0x2c, fmt31t, famSwitch) // sparse-switch

	for op := byte(0x2d); op <= 0x31; op++ {
		set(op, fmt23x, famOther) // cmpkind
	}
	for op := byte(0x32); op <= 0x37; op++ {
		set(op, fmt22t, famIfTest)
	}
	for op := byte(0x38); op <= 0x3d; op++ {
		set(op, fmt21t, famIfTestz)
	}
	// 0x3e-0x43 unused

	for op := byte(0x44); op <= 0x51; op++ {
		set(op, fmt23x, famOther) // aget/aput family
	}
	for op, k := byte(0x52), fieldInt; op <= 0x58; op, k = op+1, k+1 {
		set(op, fmt22c, famIGet)
	}
	for op := byte(0x59); op <= 0x5f; op++ {
		set(op, fmt22c, famIPut)
	}
	for op := byte(0x60); op <= 0x66; op++ {
		set(op, fmt21c, famSGet)
	}
	for op := byte(0x67); op <= 0x6d; op++ {
		set(op, fmt21c, famSPut)
	}
	for op := byte(0x6e); op <= 0x72; op++ {
		set(op, fmt35c, famInvoke)
	}
	// 0x73 unused
	for op := byte(0x74); op <= 0x78; op++ {
		set(op, fmt3rc, famInvokeRange)
	}
	// 0x79-0x7a unused
	for op := byte(0x7b); op <= 0x8f; op++ {
		set(op, fmt12x, famOther) // unop
	}
	for op := byte(0x90); op <= 0xaf; op++ {
		set(op, fmt23x, famOther) // binop
	}
	for op := byte(0xb0); op <= 0xcf; op++ {
		set(op, fmt12x, famOther) // binop/2addr
	}
	for op := byte(0xd0); op <= 0xd7; op++ {
		set(op, fmt22s, famOther) // binop/lit16
	}
	for op := byte(0xd8); op <= 0xe2; op++ {
		set(op, fmt22b, famOther) // binop/lit8
	}
	return t
}

// fieldKindOf derives the field/value kind from an iget/iput/sget/sput
// opcode's position in its 7-opcode family (int, wide, object,
// boolean, byte, char, short, in that order — the standard Dalvik
// ordering for all four families).
func fieldKindOf(op byte, familyBase byte) fieldKind {
	return fieldKind(op - familyBase)
}
