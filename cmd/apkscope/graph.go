/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobin-labs/apkscope"
)

func newGraphCmd() *cobra.Command {
	var matchPattern string
	cmd := &cobra.Command{
		Use:   "graph <apk>",
		Short: "Build the call graph and print its summary stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apkscope.Open(context.Background(), args[0], openOpts()...)
			if err != nil {
				return err
			}
			methods, edges := a.Graph.Stats()

			var matches []string
			if matchPattern != "" {
				for _, h := range a.Graph.FindMethodsMatching(matchPattern) {
					matches = append(matches, a.Graph.Labels.Name(h))
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Methods     int      `json:"methods"`
				Edges       int      `json:"edges"`
				Matches     []string `json:"matches,omitempty"`
				Diagnostics []diagnosticView `json:"diagnostics,omitempty"`
			}{
				Methods:     methods,
				Edges:       edges,
				Matches:     matches,
				Diagnostics: diagnosticViews(a.Sink),
			})
		},
	}
	cmd.Flags().StringVar(&matchPattern, "match", "", "also list methods whose label contains this substring")
	return cmd
}
