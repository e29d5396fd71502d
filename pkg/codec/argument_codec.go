package codec

import (
	"bytes"
	"math"

	"github.com/ssargent/dltview/pkg/typeinfo"
)

// auxFlags change the argument layout (name/unit/quantization fields) and are
// not decoded.
const auxFlags = typeinfo.VariableInfo | typeinfo.FixedPoint | typeinfo.TraceInfo | typeinfo.TypeStruct

// DecodeArgument decodes one argument from the start of data and returns it
// with the number of bytes consumed. order must be BigEndian or LittleEndian.
// charset names the text encoding of ASCII-coded strings; empty means ASCII.
// UTF-8-coded strings ignore it.
func DecodeArgument(data []byte, order Endianness, charset string) (Argument, int, error) {
	if order == EndianUnset {
		return nil, 0, ErrEndianUnknown
	}
	if err := truncated(data, 0, TypeInfoSize); err != nil {
		return nil, 0, err
	}
	bo := order.order()
	t := typeinfo.TypeInfo(bo.Uint32(data))
	if t&auxFlags != 0 {
		return nil, 0, &TypeInfoError{Kind: ErrUnsupportedType, TypeInfo: t}
	}

	p := data[TypeInfoSize:]
	switch t.BaseType() {
	case typeinfo.TypeBool:
		if l := t.Length(); l != 0 && l != typeinfo.Length8Bit {
			return nil, 0, &TypeInfoError{Kind: ErrUnsupportedLength, TypeInfo: t}
		}
		if err := truncated(data, TypeInfoSize, 1); err != nil {
			return nil, 0, err
		}
		return Bool{Value: p[0] != 0, Order: order}, TypeInfoSize + 1, nil

	case typeinfo.TypeSigned:
		w, err := integerWidth(t)
		if err != nil {
			return nil, 0, err
		}
		if err := truncated(data, TypeInfoSize, w); err != nil {
			return nil, 0, err
		}
		var a Argument
		switch w {
		case 1:
			a = SInt8{Value: int8(p[0]), Order: order}
		case 2:
			a = SInt16{Value: int16(bo.Uint16(p)), Order: order}
		case 4:
			a = SInt32{Value: int32(bo.Uint32(p)), Order: order}
		default:
			a = SInt64{Value: int64(bo.Uint64(p)), Order: order}
		}
		return a, TypeInfoSize + w, nil

	case typeinfo.TypeUnsigned:
		w, err := integerWidth(t)
		if err != nil {
			return nil, 0, err
		}
		if err := truncated(data, TypeInfoSize, w); err != nil {
			return nil, 0, err
		}
		var a Argument
		switch w {
		case 1:
			a = UInt8{Value: p[0], Order: order}
		case 2:
			a = UInt16{Value: bo.Uint16(p), Order: order}
		case 4:
			a = UInt32{Value: bo.Uint32(p), Order: order}
		default:
			a = UInt64{Value: bo.Uint64(p), Order: order}
		}
		return a, TypeInfoSize + w, nil

	case typeinfo.TypeFloat:
		switch t.Length() {
		case typeinfo.Length32Bit:
			if err := truncated(data, TypeInfoSize, 4); err != nil {
				return nil, 0, err
			}
			return Float32{Value: math.Float32frombits(bo.Uint32(p)), Order: order}, TypeInfoSize + 4, nil
		case typeinfo.Length64Bit:
			if err := truncated(data, TypeInfoSize, 8); err != nil {
				return nil, 0, err
			}
			return Float64{Value: math.Float64frombits(bo.Uint64(p)), Order: order}, TypeInfoSize + 8, nil
		default:
			return nil, 0, &TypeInfoError{Kind: ErrUnsupportedLength, TypeInfo: t}
		}

	case typeinfo.TypeString:
		if t.Length() == typeinfo.Length128Bit {
			return nil, 0, &TypeInfoError{Kind: ErrUnsupportedLength, TypeInfo: t}
		}
		var utf8 bool
		switch t.StringCoding() {
		case typeinfo.StringCodingASCII:
		case typeinfo.StringCodingUTF8:
			utf8 = true
		default:
			return nil, 0, &TypeInfoError{Kind: ErrUnsupportedStringCoding, TypeInfo: t}
		}
		body, n, err := varField(data, bo)
		if err != nil {
			return nil, 0, err
		}
		if k := len(body); k > 0 && body[k-1] == 0 {
			body = body[:k-1]
		}
		s := String{UTF8: utf8, Order: order}
		cs := CharsetUTF8
		if !utf8 {
			cs = normalizeCharset(charset)
			if cs != CharsetASCII {
				s.Charset = cs
			}
		}
		s.Value, err = decodeText(body, cs)
		if err != nil {
			return nil, 0, rebase(err, TypeInfoSize+LengthFieldSize)
		}
		return s, n, nil

	case typeinfo.TypeRaw:
		if t.Length() == typeinfo.Length128Bit {
			return nil, 0, &TypeInfoError{Kind: ErrUnsupportedLength, TypeInfo: t}
		}
		body, n, err := varField(data, bo)
		if err != nil {
			return nil, 0, err
		}
		return Raw{Data: bytes.Clone(body), Order: order}, n, nil
	}

	return nil, 0, &TypeInfoError{Kind: ErrUnsupportedType, TypeInfo: t}
}

func integerWidth(t typeinfo.TypeInfo) (int, error) {
	switch t.Length() {
	case typeinfo.Length8Bit, typeinfo.Length16Bit, typeinfo.Length32Bit, typeinfo.Length64Bit:
		return t.Width(), nil
	default:
		return 0, &TypeInfoError{Kind: ErrUnsupportedLength, TypeInfo: t}
	}
}

// varField reads the 16-bit length prefix following the type-info word and
// returns the body it announces together with the argument's footprint.
func varField(data []byte, bo byteOrder) ([]byte, int, error) {
	if err := truncated(data, TypeInfoSize, LengthFieldSize); err != nil {
		return nil, 0, err
	}
	l := int(bo.Uint16(data[TypeInfoSize:]))
	start := TypeInfoSize + LengthFieldSize
	if err := truncated(data, start, l); err != nil {
		return nil, 0, err
	}
	return data[start : start+l], start + l, nil
}

// EncodeArgument serializes arg. order wins over the argument's stored
// endianness; with neither set the call fails with ErrEndianUnknown.
func EncodeArgument(arg Argument, order Endianness) ([]byte, error) {
	return noPartial(AppendArgument(make([]byte, 0, arg.Len()), arg, order))
}

// AppendArgument appends the serialized arg to dst. On error dst is returned
// unchanged.
func AppendArgument(dst []byte, arg Argument, order Endianness) ([]byte, error) {
	e, err := resolve(order, arg.Endianness())
	if err != nil {
		return dst, err
	}
	bo := e.order()
	payload, err := arg.appendPayload(make([]byte, 0, arg.PayloadLen()), bo)
	if err != nil {
		return dst, err
	}
	dst = bo.AppendUint32(dst, uint32(arg.TypeInfo()))
	return append(dst, payload...), nil
}

// ArgumentsEqual reports whether a and b are the same variant holding the
// same value. Stored endianness and charset names are ignored; floats compare
// by bit pattern so NaN payloads are significant.
func ArgumentsEqual(a, b Argument) bool {
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x.Value == y.Value
	case SInt8:
		y, ok := b.(SInt8)
		return ok && x.Value == y.Value
	case SInt16:
		y, ok := b.(SInt16)
		return ok && x.Value == y.Value
	case SInt32:
		y, ok := b.(SInt32)
		return ok && x.Value == y.Value
	case SInt64:
		y, ok := b.(SInt64)
		return ok && x.Value == y.Value
	case UInt8:
		y, ok := b.(UInt8)
		return ok && x.Value == y.Value
	case UInt16:
		y, ok := b.(UInt16)
		return ok && x.Value == y.Value
	case UInt32:
		y, ok := b.(UInt32)
		return ok && x.Value == y.Value
	case UInt64:
		y, ok := b.(UInt64)
		return ok && x.Value == y.Value
	case Float32:
		y, ok := b.(Float32)
		return ok && math.Float32bits(x.Value) == math.Float32bits(y.Value)
	case Float64:
		y, ok := b.(Float64)
		return ok && math.Float64bits(x.Value) == math.Float64bits(y.Value)
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value && x.UTF8 == y.UTF8
	case Raw:
		y, ok := b.(Raw)
		return ok && bytes.Equal(x.Data, y.Data)
	}
	return false
}

// SameEncoding reports whether a and b serialize to identical bytes in order.
func SameEncoding(a, b Argument, order Endianness) bool {
	x, err := EncodeArgument(a, order)
	if err != nil {
		return false
	}
	y, err := EncodeArgument(b, order)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}
