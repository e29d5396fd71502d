package codec

import (
	"encoding/hex"
	"math"
	"strconv"

	"github.com/ssargent/dltview/pkg/typeinfo"
)

const (
	// TypeInfoSize is the size of the type-info word preceding each argument.
	TypeInfoSize = 4
	// LengthFieldSize is the size of the length prefix of String and Raw.
	LengthFieldSize = 2
	// MaxVarLength is the largest payload a 16-bit length field can describe.
	MaxVarLength = 0xFFFF
)

// Argument is one typed value of a verbose payload. The concrete type is one
// of Bool, SInt8, SInt16, SInt32, SInt64, UInt8, UInt16, UInt32, UInt64,
// Float32, Float64, String or Raw.
type Argument interface {
	// TypeInfo returns the type-info word emitted for the argument.
	TypeInfo() typeinfo.TypeInfo
	// PayloadLen returns the number of bytes following the type-info word,
	// including the length prefix of String and Raw.
	PayloadLen() int
	// Len returns the full on-wire footprint: TypeInfoSize + PayloadLen.
	Len() int
	// Endianness returns the byte order the argument was built or decoded with.
	Endianness() Endianness
	// String renders the value for display.
	String() string

	appendPayload(dst []byte, bo byteOrder) ([]byte, error)
}

// Bool is a boolean argument. It occupies one payload byte.
type Bool struct {
	Value bool
	Order Endianness
}

func (a Bool) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeBool | typeinfo.Length8Bit }
func (a Bool) PayloadLen() int             { return 1 }
func (a Bool) Len() int                    { return TypeInfoSize + 1 }
func (a Bool) Endianness() Endianness      { return a.Order }
func (a Bool) String() string              { return strconv.FormatBool(a.Value) }

func (a Bool) appendPayload(dst []byte, _ byteOrder) ([]byte, error) {
	if a.Value {
		return append(dst, 1), nil
	}
	return append(dst, 0), nil
}

// SInt8 is a signed 8-bit argument.
type SInt8 struct {
	Value int8
	Order Endianness
}

func (a SInt8) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeSigned | typeinfo.Length8Bit }
func (a SInt8) PayloadLen() int             { return 1 }
func (a SInt8) Len() int                    { return TypeInfoSize + 1 }
func (a SInt8) Endianness() Endianness      { return a.Order }
func (a SInt8) String() string              { return strconv.FormatInt(int64(a.Value), 10) }

func (a SInt8) appendPayload(dst []byte, _ byteOrder) ([]byte, error) {
	return append(dst, byte(a.Value)), nil
}

// SInt16 is a signed 16-bit argument.
type SInt16 struct {
	Value int16
	Order Endianness
}

func (a SInt16) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeSigned | typeinfo.Length16Bit }
func (a SInt16) PayloadLen() int             { return 2 }
func (a SInt16) Len() int                    { return TypeInfoSize + 2 }
func (a SInt16) Endianness() Endianness      { return a.Order }
func (a SInt16) String() string              { return strconv.FormatInt(int64(a.Value), 10) }

func (a SInt16) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint16(dst, uint16(a.Value)), nil
}

// SInt32 is a signed 32-bit argument.
type SInt32 struct {
	Value int32
	Order Endianness
}

func (a SInt32) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeSigned | typeinfo.Length32Bit }
func (a SInt32) PayloadLen() int             { return 4 }
func (a SInt32) Len() int                    { return TypeInfoSize + 4 }
func (a SInt32) Endianness() Endianness      { return a.Order }
func (a SInt32) String() string              { return strconv.FormatInt(int64(a.Value), 10) }

func (a SInt32) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint32(dst, uint32(a.Value)), nil
}

// SInt64 is a signed 64-bit argument.
type SInt64 struct {
	Value int64
	Order Endianness
}

func (a SInt64) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeSigned | typeinfo.Length64Bit }
func (a SInt64) PayloadLen() int             { return 8 }
func (a SInt64) Len() int                    { return TypeInfoSize + 8 }
func (a SInt64) Endianness() Endianness      { return a.Order }
func (a SInt64) String() string              { return strconv.FormatInt(a.Value, 10) }

func (a SInt64) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint64(dst, uint64(a.Value)), nil
}

// UInt8 is an unsigned 8-bit argument.
type UInt8 struct {
	Value uint8
	Order Endianness
}

func (a UInt8) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeUnsigned | typeinfo.Length8Bit }
func (a UInt8) PayloadLen() int             { return 1 }
func (a UInt8) Len() int                    { return TypeInfoSize + 1 }
func (a UInt8) Endianness() Endianness      { return a.Order }
func (a UInt8) String() string              { return strconv.FormatUint(uint64(a.Value), 10) }

func (a UInt8) appendPayload(dst []byte, _ byteOrder) ([]byte, error) {
	return append(dst, a.Value), nil
}

// UInt16 is an unsigned 16-bit argument.
type UInt16 struct {
	Value uint16
	Order Endianness
}

func (a UInt16) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeUnsigned | typeinfo.Length16Bit }
func (a UInt16) PayloadLen() int             { return 2 }
func (a UInt16) Len() int                    { return TypeInfoSize + 2 }
func (a UInt16) Endianness() Endianness      { return a.Order }
func (a UInt16) String() string              { return strconv.FormatUint(uint64(a.Value), 10) }

func (a UInt16) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint16(dst, a.Value), nil
}

// UInt32 is an unsigned 32-bit argument.
type UInt32 struct {
	Value uint32
	Order Endianness
}

func (a UInt32) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeUnsigned | typeinfo.Length32Bit }
func (a UInt32) PayloadLen() int             { return 4 }
func (a UInt32) Len() int                    { return TypeInfoSize + 4 }
func (a UInt32) Endianness() Endianness      { return a.Order }
func (a UInt32) String() string              { return strconv.FormatUint(uint64(a.Value), 10) }

func (a UInt32) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint32(dst, a.Value), nil
}

// UInt64 is an unsigned 64-bit argument.
type UInt64 struct {
	Value uint64
	Order Endianness
}

func (a UInt64) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeUnsigned | typeinfo.Length64Bit }
func (a UInt64) PayloadLen() int             { return 8 }
func (a UInt64) Len() int                    { return TypeInfoSize + 8 }
func (a UInt64) Endianness() Endianness      { return a.Order }
func (a UInt64) String() string              { return strconv.FormatUint(a.Value, 10) }

func (a UInt64) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint64(dst, a.Value), nil
}

// Float32 is an IEEE-754 binary32 argument.
type Float32 struct {
	Value float32
	Order Endianness
}

func (a Float32) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeFloat | typeinfo.Length32Bit }
func (a Float32) PayloadLen() int             { return 4 }
func (a Float32) Len() int                    { return TypeInfoSize + 4 }
func (a Float32) Endianness() Endianness      { return a.Order }
func (a Float32) String() string              { return strconv.FormatFloat(float64(a.Value), 'g', -1, 32) }

func (a Float32) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint32(dst, math.Float32bits(a.Value)), nil
}

// Float64 is an IEEE-754 binary64 argument.
type Float64 struct {
	Value float64
	Order Endianness
}

func (a Float64) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeFloat | typeinfo.Length64Bit }
func (a Float64) PayloadLen() int             { return 8 }
func (a Float64) Len() int                    { return TypeInfoSize + 8 }
func (a Float64) Endianness() Endianness      { return a.Order }
func (a Float64) String() string              { return strconv.FormatFloat(a.Value, 'g', -1, 64) }

func (a Float64) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	return bo.AppendUint64(dst, math.Float64bits(a.Value)), nil
}

// String is a NUL-terminated text argument. UTF8 selects the UTF-8 string
// coding; otherwise the text is written in Charset, which defaults to ASCII.
type String struct {
	Value   string
	UTF8    bool
	Charset string
	Order   Endianness
}

func (a String) TypeInfo() typeinfo.TypeInfo {
	t := typeinfo.TypeString | typeinfo.Length8Bit
	if a.UTF8 {
		t |= typeinfo.StringCodingUTF8
	}
	return t
}

func (a String) charset() string {
	if a.UTF8 {
		return CharsetUTF8
	}
	return normalizeCharset(a.Charset)
}

// PayloadLen falls back to the length of the Go string when the text cannot
// be represented in the argument's charset; encoding reports that case.
func (a String) PayloadLen() int {
	b, err := encodeText(a.Value, a.charset())
	if err != nil {
		return LengthFieldSize + len(a.Value) + 1
	}
	return LengthFieldSize + len(b) + 1
}

func (a String) Len() int               { return TypeInfoSize + a.PayloadLen() }
func (a String) Endianness() Endianness { return a.Order }
func (a String) String() string         { return a.Value }

func (a String) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	b, err := encodeText(a.Value, a.charset())
	if err != nil {
		return nil, err
	}
	n := len(b) + 1
	if n > MaxVarLength {
		return nil, &StringTooLongError{Bytes: n}
	}
	dst = bo.AppendUint16(dst, uint16(n))
	dst = append(dst, b...)
	return append(dst, 0), nil
}

// Raw is an opaque byte argument.
type Raw struct {
	Data  []byte
	Order Endianness
}

func (a Raw) TypeInfo() typeinfo.TypeInfo { return typeinfo.TypeRaw | typeinfo.Length8Bit }
func (a Raw) PayloadLen() int             { return LengthFieldSize + len(a.Data) }
func (a Raw) Len() int                    { return TypeInfoSize + a.PayloadLen() }
func (a Raw) Endianness() Endianness      { return a.Order }
func (a Raw) String() string              { return hex.EncodeToString(a.Data) }

func (a Raw) appendPayload(dst []byte, bo byteOrder) ([]byte, error) {
	if len(a.Data) > MaxVarLength {
		return nil, &StringTooLongError{Bytes: len(a.Data)}
	}
	dst = bo.AppendUint16(dst, uint16(len(a.Data)))
	return append(dst, a.Data...), nil
}
