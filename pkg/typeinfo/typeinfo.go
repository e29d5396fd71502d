// Package typeinfo defines the bit layout of the 32-bit type-info word that
// precedes every argument of a verbose DLT payload.
//
//	bits  0-3   type length (8/16/32/64/128 bit)
//	bits  4-10  base type (bool, signed, unsigned, float, array, string, raw)
//	bits 11-14  auxiliary flags (variable info, fixed point, trace info, struct)
//	bits 15-17  string coding (ASCII, UTF-8, ...)
package typeinfo

import (
	"fmt"
	"strings"
)

// TypeInfo is a raw type-info word.
type TypeInfo uint32

// Type length codes.
const (
	Length8Bit   TypeInfo = 0x00000001
	Length16Bit  TypeInfo = 0x00000002
	Length32Bit  TypeInfo = 0x00000003
	Length64Bit  TypeInfo = 0x00000004
	Length128Bit TypeInfo = 0x00000005
)

// Base types. Exactly one of these is set in a well-formed word.
const (
	TypeBool     TypeInfo = 0x00000010
	TypeSigned   TypeInfo = 0x00000020
	TypeUnsigned TypeInfo = 0x00000040
	TypeFloat    TypeInfo = 0x00000080
	TypeArray    TypeInfo = 0x00000100
	TypeString   TypeInfo = 0x00000200
	TypeRaw      TypeInfo = 0x00000400
)

// Auxiliary flags.
const (
	VariableInfo TypeInfo = 0x00000800
	FixedPoint   TypeInfo = 0x00001000
	TraceInfo    TypeInfo = 0x00002000
	TypeStruct   TypeInfo = 0x00004000
)

// String codings.
const (
	StringCodingASCII TypeInfo = 0x00000000
	StringCodingUTF8  TypeInfo = 0x00008000
	StringCodingHex   TypeInfo = 0x00010000
	StringCodingBin   TypeInfo = 0x00018000
)

// Masks selecting the three sub-fields of a word.
const (
	MaskTypeLength   TypeInfo = 0x0000000F
	MaskBaseType     TypeInfo = 0x000007F0
	MaskStringCoding TypeInfo = 0x00038000
)

// BaseType returns the base-type bits of t.
func (t TypeInfo) BaseType() TypeInfo {
	return t & MaskBaseType
}

// Length returns the type-length code of t.
func (t TypeInfo) Length() TypeInfo {
	return t & MaskTypeLength
}

// StringCoding returns the string-coding bits of t.
func (t TypeInfo) StringCoding() TypeInfo {
	return t & MaskStringCoding
}

// Has reports whether every bit of flag is set in t.
func (t TypeInfo) Has(flag TypeInfo) bool {
	return t&flag == flag
}

// Width returns the payload width in bytes selected by the length code of t,
// or 0 when the code is undefined.
func (t TypeInfo) Width() int {
	switch t.Length() {
	case Length8Bit:
		return 1
	case Length16Bit:
		return 2
	case Length32Bit:
		return 4
	case Length64Bit:
		return 8
	case Length128Bit:
		return 16
	default:
		return 0
	}
}

var baseTypeNames = []struct {
	bit  TypeInfo
	name string
}{
	{TypeBool, "bool"},
	{TypeSigned, "sint"},
	{TypeUnsigned, "uint"},
	{TypeFloat, "float"},
	{TypeArray, "array"},
	{TypeString, "string"},
	{TypeRaw, "raw"},
	{TypeStruct, "struct"},
}

// String renders t for diagnostics, e.g. "uint32|0x43" or "string(utf8)|0x8201".
func (t TypeInfo) String() string {
	var parts []string
	for _, b := range baseTypeNames {
		if t&b.bit != 0 {
			parts = append(parts, b.name)
		}
	}
	name := strings.Join(parts, "+")
	if name == "" {
		name = "unknown"
	}
	if w := t.Width(); w > 0 && (t.Has(TypeSigned) || t.Has(TypeUnsigned) || t.Has(TypeFloat)) {
		name = fmt.Sprintf("%s%d", name, w*8)
	}
	if t.Has(TypeString) {
		switch t.StringCoding() {
		case StringCodingASCII:
			name += "(ascii)"
		case StringCodingUTF8:
			name += "(utf8)"
		default:
			name += "(?)"
		}
	}
	return fmt.Sprintf("%s|%#x", name, uint32(t))
}
