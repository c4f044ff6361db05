/*
 * apkscope - Android APK static-analysis toolkit
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package dex

import (
	"bytes"
)

const headerSize = 0x70

const endianConstant = 0x12345678

var magicPrefix = []byte("dex\n")

// Header is the bit-exact DEX header (§3, §6).
type Header struct {
	Magic          [8]byte
	Checksum       uint32
	Signature      [20]byte
	FileSize       uint32
	HeaderSize     uint32
	EndianTag      uint32
	LinkSize       uint32
	LinkOff        uint32
	MapOff         uint32
	StringIDsSize  uint32
	StringIDsOff   uint32
	TypeIDsSize    uint32
	TypeIDsOff     uint32
	ProtoIDsSize   uint32
	ProtoIDsOff    uint32
	FieldIDsSize   uint32
	FieldIDsOff    uint32
	MethodIDsSize  uint32
	MethodIDsOff   uint32
	ClassDefsSize  uint32
	ClassDefsOff   uint32
	DataSize       uint32
	DataOff        uint32
}

// Version returns the three-digit version encoded in the magic, e.g.
// "035".
func (h *Header) Version() string {
	return string(h.Magic[4:7])
}

func parseHeader(r *reader, fileLen int) (Header, error) {
	var h Header
	magic, err := r.bytes(8)
	if err != nil {
		return h, err
	}
	copy(h.Magic[:], magic)
	if !bytes.HasPrefix(magic, magicPrefix) || magic[7] != 0 {
		return h, badMagic()
	}
	ver := string(magic[4:7])
	if ver < "035" || ver > "039" {
		return h, badMagic()
	}

	if h.Checksum, err = r.u32(); err != nil {
		return h, err
	}
	sig, err := r.bytes(20)
	if err != nil {
		return h, err
	}
	copy(h.Signature[:], sig)

	fields := []*uint32{
		&h.FileSize, &h.HeaderSize, &h.EndianTag,
		&h.LinkSize, &h.LinkOff, &h.MapOff,
		&h.StringIDsSize, &h.StringIDsOff,
		&h.TypeIDsSize, &h.TypeIDsOff,
		&h.ProtoIDsSize, &h.ProtoIDsOff,
		&h.FieldIDsSize, &h.FieldIDsOff,
		&h.MethodIDsSize, &h.MethodIDsOff,
		&h.ClassDefsSize, &h.ClassDefsOff,
		&h.DataSize, &h.DataOff,
	}
	for _, f := range fields {
		v, err := r.u32()
		if err != nil {
			return h, err
		}
		*f = v
	}

	if h.EndianTag != endianConstant {
		return h, errFormat(0, "non-little-endian DEX is not supported")
	}
	if h.HeaderSize != headerSize {
		return h, errFormat(0, "unexpected header_size")
	}
	if int(h.FileSize) != fileLen {
		return h, errFormat(0, "file_size does not match blob length")
	}

	for _, sec := range []struct {
		off, size uint32
		name      string
	}{
		{h.StringIDsOff, h.StringIDsSize * 4, "string_ids"},
		{h.TypeIDsOff, h.TypeIDsSize * 4, "type_ids"},
		{h.ProtoIDsOff, h.ProtoIDsSize * 12, "proto_ids"},
		{h.FieldIDsOff, h.FieldIDsSize * 8, "field_ids"},
		{h.MethodIDsOff, h.MethodIDsSize * 8, "method_ids"},
		{h.ClassDefsOff, h.ClassDefsSize * 32, "class_defs"},
	} {
		if sec.size == 0 {
			continue
		}
		if uint64(sec.off)+uint64(sec.size) > uint64(fileLen) {
			return h, errFormat(int(sec.off), sec.name+" section runs past end of file")
		}
	}

	return h, nil
}

func badMagic() error {
	return errFormat(0, "bad DEX magic")
}
