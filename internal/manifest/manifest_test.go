/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacobin-labs/apkscope/internal/binxml"
)

func attrAndroidEv(name, value string) binxml.Attr {
	return binxml.Attr{Namespace: androidNS, Name: name, Value: value}
}

func TestBuildFoldsPackageAndSdkVersions(t *testing.T) {
	events := []binxml.Event{
		{Kind: binxml.EventStartElement, Name: "manifest", Attrs: []binxml.Attr{{Name: "package", Value: "com.example.app"}}},
		{Kind: binxml.EventStartElement, Name: "uses-sdk", Attrs: []binxml.Attr{attrAndroidEv("minSdkVersion", "21"), attrAndroidEv("targetSdkVersion", "34")}},
		{Kind: binxml.EventEndElement, Name: "manifest"},
	}
	m, err := Build(events)
	require.NoError(t, err)
	require.Equal(t, "com.example.app", m.Package)
	require.Equal(t, 21, m.MinSdkVersion)
	require.Equal(t, 34, m.TargetSdkVersion)
}

func TestBuildCanonicalizesRelativeActivityNames(t *testing.T) {
	events := []binxml.Event{
		{Kind: binxml.EventStartElement, Name: "manifest", Attrs: []binxml.Attr{{Name: "package", Value: "com.example.app"}}},
		{Kind: binxml.EventStartElement, Name: "activity", Attrs: []binxml.Attr{attrAndroidEv("name", ".MainActivity")}},
		{Kind: binxml.EventEndElement, Name: "activity"},
	}
	m, err := Build(events)
	require.NoError(t, err)
	require.Len(t, m.Activities, 1)
	require.Equal(t, "com.example.app.MainActivity", m.Activities[0].Name)
}

func TestBuildDerivesExportedFromIntentFilterPresence(t *testing.T) {
	events := []binxml.Event{
		{Kind: binxml.EventStartElement, Name: "manifest", Attrs: []binxml.Attr{{Name: "package", Value: "com.example.app"}}},
		{Kind: binxml.EventStartElement, Name: "activity", Attrs: []binxml.Attr{attrAndroidEv("name", ".DeepLinkActivity")}},
		{Kind: binxml.EventStartElement, Name: "intent-filter"},
		{Kind: binxml.EventStartElement, Name: "action", Attrs: []binxml.Attr{attrAndroidEv("name", "android.intent.action.VIEW")}},
		{Kind: binxml.EventStartElement, Name: "category", Attrs: []binxml.Attr{attrAndroidEv("name", "android.intent.category.BROWSABLE")}},
		{Kind: binxml.EventStartElement, Name: "data", Attrs: []binxml.Attr{attrAndroidEv("scheme", "https"), attrAndroidEv("host", "example.com")}},
		{Kind: binxml.EventEndElement, Name: "intent-filter"},
		{Kind: binxml.EventEndElement, Name: "activity"},
	}
	m, err := Build(events)
	require.NoError(t, err)
	require.Len(t, m.Activities, 1)
	act := m.Activities[0]
	require.NotNil(t, act.Exported)
	require.True(t, *act.Exported)
	require.True(t, act.IsDeeplinkHandler())
}

func TestBuildExplicitExportedOverridesDerivation(t *testing.T) {
	events := []binxml.Event{
		{Kind: binxml.EventStartElement, Name: "manifest", Attrs: []binxml.Attr{{Name: "package", Value: "com.example.app"}}},
		{Kind: binxml.EventStartElement, Name: "activity", Attrs: []binxml.Attr{attrAndroidEv("name", ".Hidden"), attrAndroidEv("exported", "false")}},
		{Kind: binxml.EventStartElement, Name: "intent-filter"},
		{Kind: binxml.EventStartElement, Name: "action", Attrs: []binxml.Attr{attrAndroidEv("name", "android.intent.action.VIEW")}},
		{Kind: binxml.EventEndElement, Name: "intent-filter"},
		{Kind: binxml.EventEndElement, Name: "activity"},
	}
	m, err := Build(events)
	require.NoError(t, err)
	require.False(t, *m.Activities[0].Exported)
}

func TestIsDeeplinkHandlerRequiresSchemeAndCategory(t *testing.T) {
	c := Component{
		IntentFilters: []IntentFilter{
			{Actions: []string{"android.intent.action.VIEW"}, Categories: []string{"android.intent.category.DEFAULT"}},
		},
	}
	require.False(t, c.IsDeeplinkHandler(), "no data element carries a scheme")

	c.IntentFilters[0].Data = []DataElement{{Scheme: "https"}}
	require.True(t, c.IsDeeplinkHandler())
}
