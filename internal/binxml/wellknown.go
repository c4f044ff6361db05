/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package binxml

// wellKnownAttrName maps a handful of framework attribute resource ids
// to their name, the same fallback avast/apkparser applies for
// minimized/obfuscated manifests whose string pool omits the attribute
// name (the id can never change without breaking existing APKs, so a
// small pinned table is stable).
var wellKnownAttrIDs = map[uint32]string{
	0x01010003: "name",
	0x0101021b: "versionCode",
	0x0101021c: "versionName",
	0x0101020c: "minSdkVersion",
	0x01010270: "targetSdkVersion",
	0x01010010: "exported",
	0x01010231: "maxSdkVersion",
	0x01010228: "required",
	0x01010027: "scheme",
	0x01010028: "host",
	0x01010026: "mimeType",
}

func wellKnownAttrName(id uint32) string {
	return wellKnownAttrIDs[id]
}
