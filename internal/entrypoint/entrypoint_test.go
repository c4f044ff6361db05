/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package entrypoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacobin-labs/apkscope/internal/dex"
	"github.com/jacobin-labs/apkscope/internal/manifest"
)

func newEmptyGlobalIndexForTest(t *testing.T) *dex.GlobalIndex {
	t.Helper()
	idx, err := dex.BuildGlobalIndex(nil, nil)
	require.NoError(t, err)
	return idx
}

func TestBuildMarksUnresolvedClassNotFound(t *testing.T) {
	m := &manifest.Manifest{
		Package: "com.example.app",
		Activities: []manifest.Component{
			{Name: "com.example.app.GoneActivity", Kind: manifest.KindActivity},
		},
	}
	idx := newEmptyGlobalIndexForTest(t)

	eps, err := Build(m, idx)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	require.False(t, eps[0].ClassFound)
	require.Equal(t, "Lcom/example/app/GoneActivity;", eps[0].ClassLabel)
}

func TestLifecycleSetsArePinnedPerKind(t *testing.T) {
	require.ElementsMatch(t, []string{"onCreate", "onStart", "onResume", "onNewIntent", "onActivityResult", "onPause", "onStop", "onDestroy"}, lifecycleSets[manifest.KindActivity])
	require.ElementsMatch(t, []string{"onCreate", "onStartCommand", "onBind", "onDestroy"}, lifecycleSets[manifest.KindService])
	require.ElementsMatch(t, []string{"onReceive"}, lifecycleSets[manifest.KindReceiver])
	require.ElementsMatch(t, []string{"onCreate", "query", "insert", "update", "delete"}, lifecycleSets[manifest.KindProvider])
}
