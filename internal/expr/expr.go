/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package expr implements the expression builder (component H): a
// single forward pass over one method's decoded instruction stream
// with an abstract register file, producing a flat list of
// reconstructed `receiver.method(literals...)` expressions.
//
// The single-pass, no-fixpoint design is deliberate (§9): this is not
// a dataflow lattice, it is "Unknown as top" abstract interpretation
// tuned for the straight-line patterns §8's scenarios exercise.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/resolve"
)

// ResourceResolver is the optional collaborator named in §1/§9: it
// resolves a 32-bit Android resource id to a typed value so literal
// rendering can print "R.type.name" instead of a raw decimal. The
// core never implements this itself — callers that have loaded
// resources.arsc supply one; the zero value (nil) disables the
// rewrite and literals fall back to decimal (§9).
type ResourceResolver interface {
	Resolve(id uint32) (typeName, entryName string, ok bool)
}

// Options configures one Build call.
type Options struct {
	ResourceResolver ResourceResolver
}

// Expression is one reconstructed invoke site (§3, §4.H.6).
type Expression struct {
	ReceiverExpr string
	MethodName   string
	ArgExprs     []string
	CalleeLabel  string
	SiteOffset   int
}

// String renders the expression as receiver.method(args...), the
// form used throughout §8's scenarios.
func (e Expression) String() string {
	return fmt.Sprintf("%s.%s(%s)", e.ReceiverExpr, e.MethodName, strings.Join(e.ArgExprs, ", "))
}

type valueKind int

const (
	vUnknown valueKind = iota
	vInt
	vString
	vClass
	vFieldRef
	vThis
	vParam
	vReceiver
)

// value is the abstract register-file entry (§4.H's AbstractValue).
type value struct {
	kind     valueKind
	i        int64
	s        string // String content / Class fqcn / FieldRef "owner.field" / Receiver class fqcn
	paramIdx int
}

// registerFile is a flat abstract register array; the zero value of
// each slot is vUnknown, matching "Unknown as top".
type registerFile []value

func newRegisterFile(n int) registerFile { return make(registerFile, n) }

func (r registerFile) reset() {
	for i := range r {
		r[i] = value{}
	}
}

// Build runs the expression builder over one method body. ownerFQCN
// is the method's declaring class; Build does not read it (the
// implicit `this` register is seeded without a class). isStatic and
// code come straight from the class/code item the method was decoded
// from.
func Build(p *dex.Parser, resolver *resolve.Resolver, ownerFQCN string, methodIdx uint32, isStatic bool, code dex.CodeItem, insns []dex.Insn, opts Options) ([]Expression, error) {
	mref, err := p.MethodRef(methodIdx)
	if err != nil {
		return nil, err
	}
	proto, err := p.Proto(mref.ProtoIdx)
	if err != nil {
		return nil, err
	}
	paramTypes, err := resolveTypes(p, proto.ParamTypes)
	if err != nil {
		return nil, err
	}

	regs := newRegisterFile(int(code.RegistersSize))
	seedParams(regs, int(code.RegistersSize), int(code.InsSize), isStatic, paramTypes)

	var out []Expression
	for _, insn := range insns {
		switch v := insn.(type) {
		case dex.Const:
			set(regs, v.Dest, value{kind: vInt, i: v.Value})

		case dex.ConstString:
			s, err := p.String(v.StringIdx)
			if err != nil {
				set(regs, v.Dest, value{})
				continue
			}
			set(regs, v.Dest, value{kind: vString, s: s})

		case dex.ConstClass:
			d, err := p.TypeDescriptorOf(v.TypeIdx)
			if err != nil {
				set(regs, v.Dest, value{})
				continue
			}
			set(regs, v.Dest, value{kind: vClass, s: d.FQCN()})

		case dex.Move:
			set(regs, v.Dest, get(regs, v.Src))

		case dex.MoveResult:
			// Return-value tracking is not attempted (§4.H.6): the
			// post-invoke value is always Unknown.
			set(regs, v.Dest, value{})

		case dex.MoveException:
			set(regs, v.Dest, value{})

		case dex.IGet:
			fl, err := p.FieldLabel(v.FieldIdx)
			if err != nil {
				set(regs, v.Dest, value{})
				continue
			}
			set(regs, v.Dest, value{kind: vFieldRef, s: fl})

		case dex.SGet:
			fl, err := p.FieldLabel(v.FieldIdx)
			if err != nil {
				set(regs, v.Dest, value{})
				continue
			}
			set(regs, v.Dest, value{kind: vFieldRef, s: fl})

		case dex.Invoke:
			e, err := buildInvoke(p, resolver, regs, v, opts)
			if err == nil {
				out = append(out, e)
			}

		case dex.Goto, dex.IfTest, dex.IfTestz, dex.Switch:
			// Basic-block boundary: approximate the merge by
			// discarding everything we tracked (§4.H.5).
			regs.reset()
		}
	}
	return out, nil
}

func set(regs registerFile, reg int, v value) {
	if reg >= 0 && reg < len(regs) {
		regs[reg] = v
	}
}

func get(regs registerFile, reg int) value {
	if reg >= 0 && reg < len(regs) {
		return regs[reg]
	}
	return value{}
}

// seedParams sets up the implicit `this` (for instance methods) and
// declared parameter registers, per §4.H.4. Wide parameter types
// (J, D) occupy two consecutive registers.
func seedParams(regs registerFile, registersSize, insSize int, isStatic bool, paramTypes []dex.TypeDescriptor) {
	reg := registersSize - insSize
	if reg < 0 {
		return
	}
	if !isStatic {
		set(regs, reg, value{kind: vThis})
		reg++
	}
	for i, t := range paramTypes {
		set(regs, reg, value{kind: vParam, paramIdx: i, s: string(t)})
		if t == "J" || t == "D" {
			reg += 2
		} else {
			reg++
		}
	}
}

func resolveTypes(p *dex.Parser, idxs []uint32) ([]dex.TypeDescriptor, error) {
	out := make([]dex.TypeDescriptor, len(idxs))
	for i, idx := range idxs {
		d, err := p.TypeDescriptorOf(idx)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func buildInvoke(p *dex.Parser, resolver *resolve.Resolver, regs registerFile, insn dex.Invoke, opts Options) (Expression, error) {
	mref, err := p.MethodRef(insn.MethodIdx)
	if err != nil {
		return Expression{}, err
	}
	ownerDesc, err := p.TypeDescriptorOf(mref.ClassIdx)
	if err != nil {
		return Expression{}, err
	}
	name, protoDesc, err := p.MethodNameDescriptor(insn.MethodIdx)
	if err != nil {
		return Expression{}, err
	}
	proto, err := p.Proto(mref.ProtoIdx)
	if err != nil {
		return Expression{}, err
	}
	paramTypes, err := resolveTypes(p, proto.ParamTypes)
	if err != nil {
		return Expression{}, err
	}

	calleeOwner := string(ownerDesc)
	if resolver != nil {
		if defClass, ok := resolver.Resolve(ownerDesc.FQCN(), name, protoDesc); ok {
			calleeOwner = "L" + slashed(defClass) + ";"
		}
	}
	calleeLabel := calleeOwner + "." + name + protoDesc

	isInstance := insn.Kind != dex.InvokeStatic
	args := insn.Args
	var receiverExpr string
	argRegs := args
	if isInstance && len(args) > 0 {
		receiverExpr = renderReceiver(get(regs, args[0]), ownerDesc, opts)
		argRegs = args[1:]
	} else {
		receiverExpr = simpleName(ownerDesc.FQCN())
	}

	var argExprs []string
	i := 0
	for _, t := range paramTypes {
		if i >= len(argRegs) {
			break
		}
		reg := argRegs[i]
		argExprs = append(argExprs, renderArg(get(regs, reg), reg, t, opts))
		if t == "J" || t == "D" {
			i += 2
		} else {
			i++
		}
	}

	return Expression{
		ReceiverExpr: receiverExpr,
		MethodName:   name,
		ArgExprs:     argExprs,
		CalleeLabel:  calleeLabel,
		SiteOffset:   insn.Off(),
	}, nil
}

func renderReceiver(v value, ownerDesc dex.TypeDescriptor, opts Options) string {
	switch v.kind {
	case vString, vClass, vFieldRef:
		return renderLiteralKind(v, "", opts)
	default:
		return lowerCamel(simpleName(ownerDesc.FQCN()))
	}
}

func renderArg(v value, reg int, paramType dex.TypeDescriptor, opts Options) string {
	switch v.kind {
	case vInt:
		if paramType == "Z" {
			if v.i != 0 {
				return "true"
			}
			return "false"
		}
		return formatIntLiteral(v.i, opts)
	case vString:
		return quoteString(v.s)
	case vClass:
		return v.s
	case vFieldRef:
		return v.s
	default:
		return "v" + strconv.Itoa(reg)
	}
}

// renderLiteralKind renders a receiver-position value that happens to
// carry a concrete literal (string/class/field-ref); int/bool never
// occur in receiver position since receivers are reference-typed.
func renderLiteralKind(v value, _ string, opts Options) string {
	switch v.kind {
	case vString:
		return quoteString(v.s)
	case vClass:
		return v.s
	case vFieldRef:
		return v.s
	default:
		return "v?"
	}
}

func formatIntLiteral(v int64, opts Options) string {
	if opts.ResourceResolver != nil {
		top := (uint32(v) >> 24) & 0xFF
		if top == 0x7f || top == 0x01 {
			if typeName, entryName, ok := opts.ResourceResolver.Resolve(uint32(v)); ok {
				return fmt.Sprintf("R.%s.%s  /* 0x%08x */", typeName, entryName, uint32(v))
			}
		}
	}
	return strconv.FormatInt(v, 10)
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func simpleName(fqcn string) string {
	if i := strings.LastIndexByte(fqcn, '.'); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func slashed(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
