/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import "github.com/jacobin-labs/apkscope"

func openOpts() []apkscope.AnalyzerOption {
	return []apkscope.AnalyzerOption{
		apkscope.WithPackagePrefixes(packagePrefixes),
		apkscope.WithParallel(parallel),
	}
}
