/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacobin-labs/apkscope"
	"github.com/jacobin-labs/apkscope/internal/dataflow"
)

var namedSinkSets = map[string][]string{
	"webview": dataflow.WebViewSinks,
	"fileio":  dataflow.FileIOSinks,
	"network": dataflow.NetworkSinks,
	"sql":     dataflow.SQLSinks,
}

func newFlowsCmd() *cobra.Command {
	var sinkNames []string
	var customPatterns []string
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "flows <apk>",
		Short: "Trace data flows from entry points to sink method patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns, err := resolveSinkPatterns(sinkNames, customPatterns)
			if err != nil {
				return err
			}

			a, err := apkscope.Open(context.Background(), args[0], openOpts()...)
			if err != nil {
				return err
			}
			flows, err := a.Flows(patterns, maxDepth)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Flows       []flowView       `json:"flows"`
				Diagnostics []diagnosticView `json:"diagnostics,omitempty"`
			}{
				Flows:       flowViews(a, flows),
				Diagnostics: diagnosticViews(a.Sink),
			})
		},
	}
	cmd.Flags().StringSliceVar(&sinkNames, "sink-set", []string{"webview", "fileio", "network", "sql"}, "canned sink pattern sets to search (webview,fileio,network,sql)")
	cmd.Flags().StringSliceVar(&customPatterns, "sink-pattern", nil, "additional raw sink method-label substrings")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 6, "maximum path length in edges")
	return cmd
}

func resolveSinkPatterns(sinkNames, customPatterns []string) ([]string, error) {
	var out []string
	for _, name := range sinkNames {
		set, ok := namedSinkSets[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown sink set %q (want one of webview, fileio, network, sql)", name)
		}
		out = append(out, set...)
	}
	out = append(out, customPatterns...)
	return out, nil
}

type pathView []string

type flowView struct {
	EntryPointLabel string   `json:"entry_point_label"`
	ComponentKind   string   `json:"component_kind"`
	SinkLabel       string   `json:"sink_label"`
	Paths           []pathView `json:"paths"`
	IsDeeplink      bool     `json:"is_deeplink"`
	MinLength       int      `json:"min_length"`
	Count           int      `json:"count"`
	Confidence      float64  `json:"confidence"`
}

func flowViews(a *apkscope.Analysis, flows []dataflow.Flow) []flowView {
	out := make([]flowView, 0, len(flows))
	for _, f := range flows {
		var paths []pathView
		for _, p := range f.Paths {
			var pv pathView
			for _, h := range p {
				pv = append(pv, a.Graph.Labels.Name(h))
			}
			paths = append(paths, pv)
		}
		out = append(out, flowView{
			EntryPointLabel: f.EntryPointLabel,
			ComponentKind:   f.ComponentKind.String(),
			SinkLabel:       f.SinkLabel,
			Paths:           paths,
			IsDeeplink:      f.IsDeeplink,
			MinLength:       f.MinLength,
			Count:           f.Count,
			Confidence:      dataflow.Confidence(f.MinLength),
		})
	}
	return out
}
