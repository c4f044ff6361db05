/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package decompile implements the class decompiler (component I): it
// batches the instruction decoder and expression builder (components
// F and H) over every method of one class and assembles the result
// into a single DecompiledClass.
package decompile

import (
	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/expr"
	"github.com/jacobin-labs/apkscope/internal/resolve"
)

// DecompiledField is one class field, name and type only — fields
// carry no instructions to reconstruct.
type DecompiledField struct {
	Name       string
	Type       string
	AccessFlag uint32
	Static     bool
}

// DecompiledMethod is one method's reconstructed body: its declared
// shape plus the invoke-site expressions the builder recovered.
type DecompiledMethod struct {
	Name        string
	Descriptor  string
	AccessFlag  uint32
	Static      bool
	Abstract    bool
	Native      bool
	Expressions []expr.Expression
	DecodeError error // non-nil when the decoder truncated this method (§7)
}

// DecompiledClass is one class, fully decompiled.
type DecompiledClass struct {
	FQCN       string
	Super      string
	Interfaces []string
	AccessFlag uint32
	Fields     []DecompiledField
	Methods    []DecompiledMethod
}

// Options forwards to the expression builder.
type Options struct {
	ResourceResolver expr.ResourceResolver
}

// Class decompiles every field and method of the class at class-def
// index idx within p.
func Class(p *dex.Parser, resolver *resolve.Resolver, idx int, opts Options) (DecompiledClass, error) {
	var out DecompiledClass
	ci, err := p.ClassInfo(idx)
	if err != nil {
		return out, err
	}
	out.FQCN = ci.FQCN
	out.Super = ci.Super
	out.Interfaces = ci.Interfaces
	out.AccessFlag = ci.Def.AccessFlags

	for _, f := range ci.Data.StaticFields {
		df, err := buildField(p, f, true)
		if err != nil {
			return out, err
		}
		out.Fields = append(out.Fields, df)
	}
	for _, f := range ci.Data.InstanceFields {
		df, err := buildField(p, f, false)
		if err != nil {
			return out, err
		}
		out.Fields = append(out.Fields, df)
	}

	for _, m := range ci.Data.DirectMethods {
		dm, err := buildMethod(p, resolver, ci.FQCN, m, opts)
		if err != nil {
			return out, err
		}
		out.Methods = append(out.Methods, dm)
	}
	for _, m := range ci.Data.VirtualMethods {
		dm, err := buildMethod(p, resolver, ci.FQCN, m, opts)
		if err != nil {
			return out, err
		}
		out.Methods = append(out.Methods, dm)
	}
	return out, nil
}

func buildField(p *dex.Parser, f dex.EncodedField, static bool) (DecompiledField, error) {
	var df DecompiledField
	fr, err := p.FieldRef(f.FieldIdx)
	if err != nil {
		return df, err
	}
	name, err := p.String(fr.NameIdx)
	if err != nil {
		return df, err
	}
	typ, err := p.TypeDescriptorOf(fr.TypeIdx)
	if err != nil {
		return df, err
	}
	df.Name = name
	df.Type = string(typ)
	df.AccessFlag = f.AccessFlags
	df.Static = static
	return df, nil
}

const (
	accStatic   = 0x0008
	accAbstract = 0x0400
	accNative   = 0x0100
)

func buildMethod(p *dex.Parser, resolver *resolve.Resolver, ownerFQCN string, m dex.EncodedMethod, opts Options) (DecompiledMethod, error) {
	var dm DecompiledMethod
	name, descriptor, err := p.MethodNameDescriptor(m.MethodIdx)
	if err != nil {
		return dm, err
	}
	dm.Name = name
	dm.Descriptor = descriptor
	dm.AccessFlag = m.AccessFlags
	dm.Static = m.AccessFlags&accStatic != 0
	dm.Abstract = m.AccessFlags&accAbstract != 0
	dm.Native = m.AccessFlags&accNative != 0

	if m.CodeOff == 0 {
		// Abstract and native methods carry no code item (§4.D).
		return dm, nil
	}
	code, err := p.CodeItem(m.CodeOff)
	if err != nil {
		return dm, err
	}
	insns, decodeErr := dex.Decode(code.Insns)
	dm.DecodeError = decodeErr

	exprs, err := expr.Build(p, resolver, ownerFQCN, m.MethodIdx, dm.Static, code, insns, expr.Options{ResourceResolver: opts.ResourceResolver})
	if err != nil {
		return dm, err
	}
	dm.Expressions = exprs
	return dm, nil
}
