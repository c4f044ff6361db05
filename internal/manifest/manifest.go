/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package manifest implements the manifest model (component C):
// folding a binxml event stream into package metadata, permissions,
// and the four component lists with their intent filters.
//
// The fold is a state machine grounded directly on
// kotaroyamazaki-playcheck's internal/manifest parser.go (a
// current-component / current-intent-filter pointer pair toggled on
// start/end element events), adapted from encoding/xml tokens to
// internal/binxml.Event.
package manifest

import (
	"strconv"
	"strings"

	"github.com/jacobin-labs/apkscope/internal/binxml"
)

// ComponentKind identifies which manifest list a Component came from.
type ComponentKind int

const (
	KindActivity ComponentKind = iota
	KindService
	KindReceiver
	KindProvider
)

func (k ComponentKind) String() string {
	switch k {
	case KindActivity:
		return "Activity"
	case KindService:
		return "Service"
	case KindReceiver:
		return "BroadcastReceiver"
	case KindProvider:
		return "ContentProvider"
	default:
		return "Unknown"
	}
}

// DataElement is one <data> element within an intent filter.
type DataElement struct {
	Scheme   string
	Host     string
	MimeType string
}

// IntentFilter is one <intent-filter> element's full action/category/
// data sets (§4.C: "preserve the full action/category/data sets").
type IntentFilter struct {
	Actions    []string
	Categories []string
	Data       []DataElement
}

// Permission is one <uses-permission> element.
type Permission struct {
	Name     string
	MaxSdk   int
	Required bool
}

// Component is one Activity/Service/Receiver/Provider declaration.
type Component struct {
	Name          string // canonicalized, fully qualified
	Kind          ComponentKind
	Exported      *bool // nil when not explicitly declared
	IntentFilters []IntentFilter
}

// Manifest is the folded AndroidManifest.xml model (§3, §4.C).
type Manifest struct {
	Package           string
	VersionCode       int
	VersionName       string
	MinSdkVersion     int
	TargetSdkVersion  int

	Permissions []Permission
	Activities  []Component
	Services    []Component
	Receivers   []Component
	Providers   []Component
}

const androidNS = "http://schemas.android.com/apk/res/android"

func attr(ev binxml.Event, name string) (string, bool) {
	for _, a := range ev.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrAndroid(ev binxml.Event, name string) (string, bool) {
	for _, a := range ev.Attrs {
		if a.Name == name && (a.Namespace == androidNS || a.Namespace == "") {
			return a.Value, true
		}
	}
	return "", false
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

type componentCtx struct {
	kind          ComponentKind
	name          string
	exported      *bool
	intentFilters []IntentFilter
}

// Build folds a parsed event stream into a Manifest.
func Build(events []binxml.Event) (*Manifest, error) {
	m := &Manifest{}
	var current *componentCtx
	var currentFilter *IntentFilter

	for _, ev := range events {
		switch ev.Kind {
		case binxml.EventStartElement:
			switch ev.Name {
			case "manifest":
				if v, ok := attr(ev, "package"); ok {
					m.Package = v
				}
				if v, ok := attrAndroid(ev, "versionCode"); ok {
					m.VersionCode = atoiOr(v, 0)
				}
				if v, ok := attrAndroid(ev, "versionName"); ok {
					m.VersionName = v
				}

			case "uses-sdk":
				if v, ok := attrAndroid(ev, "minSdkVersion"); ok {
					m.MinSdkVersion = atoiOr(v, 0)
				}
				if v, ok := attrAndroid(ev, "targetSdkVersion"); ok {
					m.TargetSdkVersion = atoiOr(v, 0)
				}

			case "uses-permission":
				p := Permission{Required: true}
				if v, ok := attrAndroid(ev, "name"); ok {
					p.Name = v
				}
				if v, ok := attrAndroid(ev, "maxSdkVersion"); ok {
					p.MaxSdk = atoiOr(v, 0)
				}
				if v, ok := attrAndroid(ev, "required"); ok {
					p.Required = strings.EqualFold(v, "true")
				}
				m.Permissions = append(m.Permissions, p)

			case "activity", "activity-alias":
				current = startComponent(ev, KindActivity)
			case "service":
				current = startComponent(ev, KindService)
			case "receiver":
				current = startComponent(ev, KindReceiver)
			case "provider":
				current = startComponent(ev, KindProvider)

			case "intent-filter":
				currentFilter = &IntentFilter{}

			case "action":
				if currentFilter != nil {
					if v, ok := attrAndroid(ev, "name"); ok {
						currentFilter.Actions = append(currentFilter.Actions, v)
					}
				}
			case "category":
				if currentFilter != nil {
					if v, ok := attrAndroid(ev, "name"); ok {
						currentFilter.Categories = append(currentFilter.Categories, v)
					}
				}
			case "data":
				if currentFilter != nil {
					var d DataElement
					d.Scheme, _ = attrAndroid(ev, "scheme")
					d.Host, _ = attrAndroid(ev, "host")
					d.MimeType, _ = attrAndroid(ev, "mimeType")
					currentFilter.Data = append(currentFilter.Data, d)
				}
			}

		case binxml.EventEndElement:
			switch ev.Name {
			case "intent-filter":
				if currentFilter != nil && current != nil {
					current.intentFilters = append(current.intentFilters, *currentFilter)
				}
				currentFilter = nil

			case "activity", "activity-alias", "service", "receiver", "provider":
				if current != nil {
					finishComponent(m, current, canonicalize(m.Package, current.name))
					current = nil
				}
			}
		}
	}
	return m, nil
}

func startComponent(ev binxml.Event, kind ComponentKind) *componentCtx {
	c := &componentCtx{kind: kind}
	if v, ok := attrAndroid(ev, "name"); ok {
		c.name = v
	}
	if v, ok := attrAndroid(ev, "exported"); ok {
		b := strings.EqualFold(v, "true")
		c.exported = &b
	}
	return c
}

func finishComponent(m *Manifest, c *componentCtx, fqName string) {
	exported := c.exported
	if exported == nil {
		derived := len(c.intentFilters) > 0
		exported = &derived
	}
	comp := Component{Name: fqName, Kind: c.kind, Exported: exported, IntentFilters: c.intentFilters}
	switch c.kind {
	case KindActivity:
		m.Activities = append(m.Activities, comp)
	case KindService:
		m.Services = append(m.Services, comp)
	case KindReceiver:
		m.Receivers = append(m.Receivers, comp)
	case KindProvider:
		m.Providers = append(m.Providers, comp)
	}
}

// canonicalize normalizes a declared class name to fully qualified
// dotted form against the package, per §4.C: names starting with "."
// or lacking dots are relative to pkg.
func canonicalize(pkg, name string) string {
	if name == "" {
		return name
	}
	if strings.HasPrefix(name, ".") {
		return pkg + name
	}
	if !strings.Contains(name, ".") {
		return pkg + "." + name
	}
	return name
}

// IsDeeplinkHandler implements §3's deeplink rule: an intent filter
// with a VIEW action, a BROWSABLE-or-DEFAULT category, and at least
// one data element carrying a scheme.
func (c Component) IsDeeplinkHandler() bool {
	for _, f := range c.IntentFilters {
		hasView := containsSubstr(f.Actions, "VIEW")
		hasCat := containsSubstr(f.Categories, "BROWSABLE") || containsSubstr(f.Categories, "DEFAULT")
		hasScheme := false
		for _, d := range f.Data {
			if d.Scheme != "" {
				hasScheme = true
				break
			}
		}
		if hasView && hasCat && hasScheme {
			return true
		}
	}
	return false
}

func containsSubstr(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
