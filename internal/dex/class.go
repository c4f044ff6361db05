/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

// ClassInfo is the resolved, human-readable view of a ClassDef used
// by the method resolver, class decompiler and entry-point analyzer:
// fqcn plus superclass/interfaces already resolved to fqcn strings.
type ClassInfo struct {
	FQCN       string
	Super      string // "" if this class has no superclass (java.lang.Object)
	Interfaces []string
	Data       ClassData
	Def        ClassDef
}

// ClassInfo resolves class def idx within p into a ClassInfo.
func (p *Parser) ClassInfo(idx int) (ClassInfo, error) {
	var ci ClassInfo
	cd, err := p.ClassDef(idx)
	if err != nil {
		return ci, err
	}
	desc, err := p.TypeDescriptorOf(cd.ClassIdx)
	if err != nil {
		return ci, err
	}
	ci.FQCN = desc.FQCN()
	ci.Def = cd
	if cd.HasSuperclass() {
		sdesc, err := p.TypeDescriptorOf(cd.SuperclassIdx)
		if err != nil {
			return ci, err
		}
		ci.Super = sdesc.FQCN()
	}
	ifaces, err := p.Interfaces(cd)
	if err != nil {
		return ci, err
	}
	for _, ti := range ifaces {
		d, err := p.TypeDescriptorOf(ti)
		if err != nil {
			return ci, err
		}
		ci.Interfaces = append(ci.Interfaces, d.FQCN())
	}
	ci.Data, err = p.ClassData(cd)
	if err != nil {
		return ci, err
	}
	return ci, nil
}

// MethodNameDescriptor returns a method's name and its "(params)ret"
// descriptor, without the owning class prefix — the form the method
// resolver (§4.G) matches classes against.
func (p *Parser) MethodNameDescriptor(methodIdx uint32) (name, descriptor string, err error) {
	m, err := p.MethodRef(methodIdx)
	if err != nil {
		return "", "", err
	}
	name, err = p.String(m.NameIdx)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.ProtoDescriptor(m.ProtoIdx)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// AllMethods returns every direct+virtual EncodedMethod declared by
// this class, in class-data order (direct first, then virtual).
func (ci ClassInfo) AllMethods() []EncodedMethod {
	out := make([]EncodedMethod, 0, len(ci.Data.DirectMethods)+len(ci.Data.VirtualMethods))
	out = append(out, ci.Data.DirectMethods...)
	out = append(out, ci.Data.VirtualMethods...)
	return out
}
