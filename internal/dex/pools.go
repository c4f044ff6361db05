/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// stringIDEntry indexes the string pool; the content is recovered
// lazily via Parser.String since most strings (debug names, etc.) are never
// touched by this core.
type stringIDEntry struct {
	dataOff uint32
}

// TypeDescriptor is a raw JVM-style type descriptor, e.g. "I",
// "Ljava/lang/String;", "[B" (§3).
type TypeDescriptor string

// IsReference reports whether the descriptor names a class or array
// type (starts with 'L' or '[').
func (t TypeDescriptor) IsReference() bool {
	return len(t) > 0 && (t[0] == 'L' || t[0] == '[')
}

// FQCN converts a class-type descriptor "Lcom/foo/Bar;" into a dotted
// fully qualified class name "com.foo.Bar", stripping the leading L
// and trailing ';'. Non-class descriptors are returned unchanged.
func (t TypeDescriptor) FQCN() string {
	s := string(t)
	if len(s) >= 2 && s[0] == 'L' && s[len(s)-1] == ';' {
		s = s[1 : len(s)-1]
	}
	return dottedFromSlashed(s)
}

func dottedFromSlashed(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '/' {
			b[i] = '.'
		}
	}
	return string(b)
}

// ProtoID is a (shorty, return type, parameter list) method prototype.
type ProtoID struct {
	ShortyIdx   uint32
	ReturnType  uint32   // type id index
	ParamsOff   uint32   // offset to type_list, 0 if no parameters
	ParamTypes  []uint32 // type id indices, resolved eagerly (small lists)
}

// FieldID is (class type, name, type), all as pool indices.
type FieldID struct {
	ClassIdx uint32 // type id index
	TypeIdx  uint32 // type id index
	NameIdx  uint32 // string id index
}

// MethodID is (class type, name, proto).
type MethodID struct {
	ClassIdx uint32 // type id index
	ProtoIdx uint32 // proto id index
	NameIdx  uint32 // string id index
}
