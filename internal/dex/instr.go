/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// Insn is the tagged-instruction sum type produced by Decode (§4.F).
// Concrete types are listed below; callers type-switch on the
// concrete type the way a parser consumer typically does with a
// small closed set of AST/IR node types.
type Insn interface {
	// Off is the instruction's offset, in 16-bit code units, from the
	// start of the method body. Branch/switch targets are expressed
	// relative to this.
	Off() int
	// Len is the instruction's length in 16-bit code units.
	Len() int
}

type base struct {
	off, length int
}

func (b base) Off() int { return b.off }
func (b base) Len() int { return b.length }

// Const is a 32-or-64-bit integer (or float/double bit pattern)
// loaded into dest by any const/const-wide variant.
type Const struct {
	base
	Dest  int
	Value int64
	Wide  bool
}

// ConstString loads the MUTF-8 string at StringIdx into dest.
type ConstString struct {
	base
	Dest      int
	StringIdx uint32
}

// ConstClass loads a java.lang.Class reference for TypeIdx into dest.
type ConstClass struct {
	base
	Dest    int
	TypeIdx uint32
}

// Move copies register Src into Dest.
type Move struct {
	base
	Dest, Src int
	Wide      bool
}

// MoveResult captures the return value of the most recently executed
// invoke into Dest.
type MoveResult struct {
	base
	Dest int
	Wide bool
}

// MoveException captures a thrown exception into Dest at a handler
// entry point.
type MoveException struct {
	base
	Dest int
}

// IGet reads an instance field into Dest from Object.
type IGet struct {
	base
	Kind           fieldKind
	Dest, Object   int
	FieldIdx       uint32
}

// IPut mirrors IGet for writes. The expression builder (§4.H) does
// not read IPut/SPut, but the decoder still produces them so other
// consumers (and future builders) have a complete instruction stream.
type IPut struct {
	base
	Kind           fieldKind
	Src, Object    int
	FieldIdx       uint32
}

// SGet reads a static field into Dest.
type SGet struct {
	base
	Kind     fieldKind
	Dest     int
	FieldIdx uint32
}

// SPut mirrors SGet for writes.
type SPut struct {
	base
	Kind     fieldKind
	Src      int
	FieldIdx uint32
}

// Invoke calls MethodIdx with Args (Range true for the /range
// encoding, where Args is a contiguous register run).
type Invoke struct {
	base
	Kind      invokeKind
	Args      []int
	MethodIdx uint32
	Range     bool
}

// Return ends the method, optionally carrying a value in Src.
type Return struct {
	base
	HasValue bool
	Src      int
}

// Throw raises the exception in Src.
type Throw struct {
	base
	Src int
}

// Goto is an unconditional branch to Off()+Target code units.
type Goto struct {
	base
	Target int
}

// IfTest is a two-register conditional branch.
type IfTest struct {
	base
	A, B   int
	Target int
}

// IfTestz is a one-register-vs-zero conditional branch.
type IfTestz struct {
	base
	A      int
	Target int
}

// Switch is a packed- or sparse-switch on register Key; the target
// table itself is not modeled (§4.F: recognized for control flow
// reset only).
type Switch struct {
	base
	Key int
}

// FillArrayData fills the array in register Array from the table at
// a data offset (not modeled beyond recognition, as with Switch).
type FillArrayData struct {
	base
	Array int
}

// Nop is a no-op or an opcode this decoder recognizes as
// control-flow-irrelevant filler (e.g. padding nops between a switch
// table and handlers).
type Nop struct{ base }

// Other is any opcode outside the §4.F subset (arithmetic, array
// element access, casts, allocation): decoded only far enough to
// determine its length, so the stream stays byte-for-byte navigable.
type Other struct {
	base
	Opcode byte
}
