/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package decompile_test

import (
	"testing"

	"github.com/jacobin-labs/apkscope/internal/decompile"
	"github.com/jacobin-labs/apkscope/internal/dextest"
)

// The field and method assertions of this test both cover the documented class_data_item member order: static
// fields, instance fields, direct methods, virtual methods.
func TestClassOrdersFieldsStaticBeforeInstanceAndMethodsDirectBeforeVirtual(t *testing.T) {
	b := dextest.New()
	classIdx := b.Class("Lcom/example/Foo;", "")

	fieldStatic := b.Field("Lcom/example/Foo;", "I", "count")
	fieldInstance := b.Field("Lcom/example/Foo;", "Ljava/lang/String;", "label")
	b.AddStaticField(classIdx, fieldStatic, 0x0008)
	b.AddInstanceField(classIdx, fieldInstance, 0)

	methodInit := b.Method("Lcom/example/Foo;", nil, "V", "<init>")
	b.AddDirectMethod(classIdx, methodInit, 0, 1, 1, 0, []uint16{0x000e}) // return-void

	methodM := b.Method("Lcom/example/Foo;", []string{"I"}, "V", "m")
	b.AddVirtualMethod(classIdx, methodM, 0, 2, 2, 0, []uint16{0x000e}) // return-void

	p, err := b.BuildParser()
	if err != nil {
		t.Fatalf("BuildParser: %v", err)
	}

	dc, err := decompile.Class(p, nil, classIdx, decompile.Options{})
	if err != nil {
		t.Fatalf("Class: %v", err)
	}

	if dc.FQCN != "com.example.Foo" {
		t.Errorf("FQCN = %q, want %q", dc.FQCN, "com.example.Foo")
	}

	if len(dc.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(dc.Fields))
	}
	if dc.Fields[0].Name != "count" || !dc.Fields[0].Static {
		t.Errorf("Fields[0] = %+v, want static field %q", dc.Fields[0], "count")
	}
	if dc.Fields[1].Name != "label" || dc.Fields[1].Static {
		t.Errorf("Fields[1] = %+v, want instance field %q", dc.Fields[1], "label")
	}

	if len(dc.Methods) != 2 {
		t.Fatalf("len(Methods) = %d, want 2", len(dc.Methods))
	}
	if dc.Methods[0].Name != "<init>" {
		t.Errorf("Methods[0].Name = %q, want %q (direct methods before virtual)", dc.Methods[0].Name, "<init>")
	}
	if dc.Methods[1].Name != "m" {
		t.Errorf("Methods[1].Name = %q, want %q", dc.Methods[1].Name, "m")
	}
}

// TestClassWithNoMembersDecompilesToEmptyLists covers the §8 boundary
// case: a class declaring no fields or methods at all.
func TestClassWithNoMembersDecompilesToEmptyLists(t *testing.T) {
	b := dextest.New()
	classIdx := b.Class("Lcom/example/Empty;", "")

	p, err := b.BuildParser()
	if err != nil {
		t.Fatalf("BuildParser: %v", err)
	}

	dc, err := decompile.Class(p, nil, classIdx, decompile.Options{})
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	if len(dc.Fields) != 0 {
		t.Errorf("len(Fields) = %d, want 0", len(dc.Fields))
	}
	if len(dc.Methods) != 0 {
		t.Errorf("len(Methods) = %d, want 0", len(dc.Methods))
	}
}
