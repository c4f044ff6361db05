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
	"github.com/jacobin-labs/apkscope/internal/diag"
)

func newComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components <apk>",
		Short: "List manifest-declared components and their lifecycle methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apkscope.Open(context.Background(), args[0], openOpts()...)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Package     string            `json:"package"`
				EntryPoints []entryPointView  `json:"entry_points"`
				Diagnostics []diagnosticView  `json:"diagnostics,omitempty"`
			}{
				Package:     a.Manifest.Package,
				EntryPoints: entryPointViews(a),
				Diagnostics: diagnosticViews(a.Sink),
			})
		},
	}
}

type entryPointView struct {
	ClassLabel        string   `json:"class_label"`
	ComponentKind     string   `json:"component_kind"`
	LifecycleMethods  []string `json:"lifecycle_methods"`
	IsExported        bool     `json:"is_exported"`
	IsDeeplinkHandler bool     `json:"is_deeplink_handler"`
	ClassFound        bool     `json:"class_found"`
}

func entryPointViews(a *apkscope.Analysis) []entryPointView {
	out := make([]entryPointView, 0, len(a.EntryPoints))
	for _, ep := range a.EntryPoints {
		out = append(out, entryPointView{
			ClassLabel:        ep.ClassLabel,
			ComponentKind:     ep.ComponentKind.String(),
			LifecycleMethods:  ep.LifecycleMethods,
			IsExported:        ep.IsExported,
			IsDeeplinkHandler: ep.IsDeeplinkHandler,
			ClassFound:        ep.ClassFound,
		})
	}
	return out
}

type diagnosticView struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

func diagnosticViews(sink *diag.Sink) []diagnosticView {
	entries := sink.Entries()
	out := make([]diagnosticView, 0, len(entries))
	for _, e := range entries {
		out = append(out, diagnosticView{Kind: e.Kind.String(), Location: e.Location, Message: e.Message})
	}
	return out
}
