/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dataflow

import (
	"testing"

	"github.com/jacobin-labs/apkscope/internal/callgraph"
	"github.com/jacobin-labs/apkscope/internal/entrypoint"
	"github.com/jacobin-labs/apkscope/internal/label"
	"github.com/jacobin-labs/apkscope/internal/manifest"
)

func TestConfidenceBuckets(t *testing.T) {
	cases := []struct {
		length int
		want   float64
	}{
		{1, 0.9}, {3, 0.9},
		{4, 0.7}, {5, 0.7},
		{6, 0.5}, {8, 0.5},
		{9, 0.3}, {100, 0.3},
	}
	for _, c := range cases {
		if got := Confidence(c.length); got != c.want {
			t.Errorf("Confidence(%d): want %v, got %v", c.length, c.want, got)
		}
	}
}

func TestAnalyzeGroupsByEntryPointAndSink(t *testing.T) {
	labels := label.NewTable()
	g := callgraph.NewGraph(labels)

	ctor := "Lcom/example/MainActivity;.<init>()V"
	onCreate := "Lcom/example/MainActivity;.onCreate(Landroid/os/Bundle;)V"
	helperA := "Lcom/example/MainActivity;.a()V"
	sink := "Landroid/webkit/WebView;.loadUrl(Ljava/lang/String;)V"

	hCtor := labels.Intern(ctor)
	hOnCreate := labels.Intern(onCreate)
	hHelper := labels.Intern(helperA)
	hSink := labels.Intern(sink)

	g.AddEdge(hCtor, hOnCreate)
	g.AddEdge(hOnCreate, hHelper)
	g.AddEdge(hHelper, hSink)

	eps := []entrypoint.EntryPoint{
		{
			ClassLabel:       "Lcom/example/MainActivity;",
			ComponentKind:    manifest.KindActivity,
			LifecycleMethods: []string{onCreate},
			ClassFound:       true,
		},
	}

	flows, err := Analyze(g, eps, WebViewSinks, 5)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(flows) != 1 {
		t.Fatalf("want 1 flow, got %d", len(flows))
	}
	f := flows[0]
	if f.SinkLabel != sink {
		t.Fatalf("want sink %q, got %q", sink, f.SinkLabel)
	}
	if f.Count != 2 || f.MinLength != 2 {
		t.Fatalf("want count=2 min_length=2, got count=%d min_length=%d", f.Count, f.MinLength)
	}
}

func TestAnalyzeSkipsEntryPointsWithClassNotFound(t *testing.T) {
	labels := label.NewTable()
	g := callgraph.NewGraph(labels)

	eps := []entrypoint.EntryPoint{
		{ClassLabel: "Lcom/example/Missing;", ComponentKind: manifest.KindActivity, ClassFound: false},
	}
	flows, err := Analyze(g, eps, WebViewSinks, 5)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(flows) != 0 {
		t.Fatalf("want 0 flows for an unresolved entry point, got %d", len(flows))
	}
}
