/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package expr_test

import (
	"testing"

	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/dextest"
	"github.com/jacobin-labs/apkscope/internal/expr"
)

// TestBuildConstBooleanInvokeRendersSetJavaScriptEnabled covers
// scenario S1: const/4 v0, #1 followed by invoke-virtual {v2, v0} on
// WebSettings.setJavaScriptEnabled(Z)V must reconstruct
// webSettings.setJavaScriptEnabled(true) with the matching callee
// label.
func TestBuildConstBooleanInvokeRendersSetJavaScriptEnabled(t *testing.T) {
	b := dextest.New()
	ownerClass := "Lcom/example/MainActivity;"
	b.Class(ownerClass, "")
	currentMethod := b.Method(ownerClass, nil, "V", "onCreate")
	calleeMethod := b.Method("Landroid/webkit/WebSettings;", []string{"Z"}, "V", "setJavaScriptEnabled")

	insns := []uint16{
		0x1012, // const/4 v0, #1
		0x206e, // invoke-virtual {v2, v0}, method@calleeMethod
		uint16(calleeMethod),
		0x0002,
		0x000e, // return-void
	}

	p, err := b.BuildParser()
	if err != nil {
		t.Fatalf("BuildParser: %v", err)
	}
	decoded, err := dex.Decode(insns)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	code := dex.CodeItem{RegistersSize: 3, InsSize: 1, OutsSize: 2, InsnsSize: uint32(len(insns)), Insns: insns}

	exprs, err := expr.Build(p, nil, "com.example.MainActivity", currentMethod, false, code, decoded, expr.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(exprs) != 1 {
		t.Fatalf("len(exprs) = %d, want 1", len(exprs))
	}

	got := exprs[0]
	wantString := "webSettings.setJavaScriptEnabled(true)"
	if got.String() != wantString {
		t.Errorf("String() = %q, want %q", got.String(), wantString)
	}
	wantLabel := "Landroid/webkit/WebSettings;.setJavaScriptEnabled(Z)V"
	if got.CalleeLabel != wantLabel {
		t.Errorf("CalleeLabel = %q, want %q", got.CalleeLabel, wantLabel)
	}
}

// TestBuildConstStringInvokeRendersLoadUrl covers scenario S2:
// const-string v0, "https://example.com/" followed by invoke-virtual
// {v1, v0} on WebView.loadUrl(Ljava/lang/String;)V must reconstruct
// webView.loadUrl("https://example.com/") with the matching callee
// label.
func TestBuildConstStringInvokeRendersLoadUrl(t *testing.T) {
	b := dextest.New()
	ownerClass := "Lcom/example/MainActivity;"
	b.Class(ownerClass, "")
	currentMethod := b.Method(ownerClass, nil, "V", "onCreate")
	calleeMethod := b.Method("Landroid/webkit/WebView;", []string{"Ljava/lang/String;"}, "V", "loadUrl")
	stringIdx := b.String("https://example.com/")

	insns := []uint16{
		0x001a, // const-string v0, string@stringIdx
		uint16(stringIdx),
		0x206e, // invoke-virtual {v1, v0}, method@calleeMethod
		uint16(calleeMethod),
		0x0001,
		0x000e, // return-void
	}

	p, err := b.BuildParser()
	if err != nil {
		t.Fatalf("BuildParser: %v", err)
	}
	decoded, err := dex.Decode(insns)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	code := dex.CodeItem{RegistersSize: 3, InsSize: 1, OutsSize: 2, InsnsSize: uint32(len(insns)), Insns: insns}

	exprs, err := expr.Build(p, nil, "com.example.MainActivity", currentMethod, false, code, decoded, expr.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(exprs) != 1 {
		t.Fatalf("len(exprs) = %d, want 1", len(exprs))
	}

	got := exprs[0]
	wantString := `webView.loadUrl("https://example.com/")`
	if got.String() != wantString {
		t.Errorf("String() = %q, want %q", got.String(), wantString)
	}
	wantLabel := "Landroid/webkit/WebView;.loadUrl(Ljava/lang/String;)V"
	if got.CalleeLabel != wantLabel {
		t.Errorf("CalleeLabel = %q, want %q", got.CalleeLabel, wantLabel)
	}
}
