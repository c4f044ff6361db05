/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Command apkscope is a thin CLI over the apkscope analysis package:
// open an APK, run the pipeline, print JSON. This is the one
// first-party caller exercising the package's external boundary.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jacobin-labs/apkscope/internal/diag"
)

var (
	packagePrefixes []string
	parallel        bool
	verbose         bool
	quiet           bool
)

func main() {
	root := &cobra.Command{
		Use:   "apkscope",
		Short: "Static analysis core for Android APKs",
	}
	root.PersistentFlags().StringSliceVar(&packagePrefixes, "package-prefix", nil, "restrict the call graph to these package subtrees (repeatable)")
	root.PersistentFlags().BoolVar(&parallel, "parallel", false, "build the call graph with the parallel (errgroup) builder")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		switch {
		case verbose:
			diag.SetLevel(zerolog.DebugLevel)
		case quiet:
			diag.SetLevel(zerolog.ErrorLevel)
		default:
			diag.SetLevel(zerolog.WarnLevel)
		}
	}

	root.AddCommand(newComponentsCmd(), newGraphCmd(), newFlowsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
