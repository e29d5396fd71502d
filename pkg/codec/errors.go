package codec

import (
	"errors"
	"fmt"

	"github.com/ssargent/dltview/pkg/typeinfo"
)

// Sentinel errors. Every typed error below unwraps to one of these, so
// callers can match kinds with errors.Is and read the details with errors.As.
var (
	ErrTruncated               = errors.New("truncated data")
	ErrBadMagic                = errors.New("bad storage header magic")
	ErrUnsupportedType         = errors.New("unsupported type info")
	ErrUnsupportedLength       = errors.New("unsupported type length")
	ErrUnsupportedStringCoding = errors.New("unsupported string coding")
	ErrStringTooLong           = errors.New("string too long")
	ErrEcuIDTooLong            = errors.New("ecu id too long")
	ErrEndianUnknown           = errors.New("endian is not known")
	ErrArgumentCountMismatch   = errors.New("argument count mismatch")
	ErrTrailingBytes           = errors.New("trailing bytes")
	ErrEncodingFailure         = errors.New("encoding failure")
	ErrUnsupportedContentType  = errors.New("unsupported content type")
	ErrBadLength               = errors.New("invalid message length")
	ErrFieldRange              = errors.New("field out of range")
)

// TruncatedError reports a buffer shorter than the footprint being decoded.
type TruncatedError struct {
	Offset   int // offset of the field that did not fit
	Expected int // bytes required from Offset
	Got      int // bytes available from Offset
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated data at offset %d: expected %d bytes, got %d", e.Offset, e.Expected, e.Got)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// BadMagicError reports a storage header that does not start with "DLT\x01".
type BadMagicError struct {
	Offset   int
	Found    []byte
	Expected []byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("DLT pattern not found at offset %d: found % x, expected % x", e.Offset, e.Found, e.Expected)
}

func (e *BadMagicError) Unwrap() error { return ErrBadMagic }

// TypeInfoError reports a type-info word the codec cannot handle. Kind is one
// of ErrUnsupportedType, ErrUnsupportedLength or ErrUnsupportedStringCoding.
type TypeInfoError struct {
	Kind     error
	Offset   int
	TypeInfo typeinfo.TypeInfo
}

func (e *TypeInfoError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Offset, e.TypeInfo)
}

func (e *TypeInfoError) Unwrap() error { return e.Kind }

// StringTooLongError reports a string or raw payload whose length does not
// fit the 16-bit length field.
type StringTooLongError struct {
	Bytes int
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds the 16-bit length field", e.Bytes)
}

func (e *StringTooLongError) Unwrap() error { return ErrStringTooLong }

// EcuIDTooLongError reports an ECU id longer than its fixed 4-byte slot.
type EcuIDTooLongError struct {
	Len int
	Max int
}

func (e *EcuIDTooLongError) Error() string {
	return fmt.Sprintf("ecu id of %d bytes exceeds %d", e.Len, e.Max)
}

func (e *EcuIDTooLongError) Unwrap() error { return ErrEcuIDTooLong }

// ArgumentCountError reports a verbose payload that ran out of bytes before
// the announced number of arguments was decoded.
type ArgumentCountError struct {
	Expected int
	Decoded  int
	Offset   int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("argument count mismatch at offset %d: expected %d, decoded %d", e.Offset, e.Expected, e.Decoded)
}

func (e *ArgumentCountError) Unwrap() error { return ErrArgumentCountMismatch }

// TrailingBytesError reports bytes left over after the last argument.
type TrailingBytesError struct {
	Offset int
	N      int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("%d trailing bytes at offset %d", e.N, e.Offset)
}

func (e *TrailingBytesError) Unwrap() error { return ErrTrailingBytes }

// EncodingError reports text that is not valid in the declared charset.
type EncodingError struct {
	Charset string
	Offset  int
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s text at offset %d: %v", e.Charset, e.Offset, e.Err)
	}
	return fmt.Sprintf("invalid %s text at offset %d", e.Charset, e.Offset)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncodingFailure }

func (e *EncodingError) Unwrap() error { return e.Err }

// ContentTypeError reports a base header whose content type has no payload
// decoder.
type ContentTypeError struct {
	ContentType ContentType
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %s", e.ContentType)
}

func (e *ContentTypeError) Unwrap() error { return ErrUnsupportedContentType }

// LengthError reports a LEN field that cannot hold the headers it announces.
type LengthError struct {
	Offset int
	Length int
	Min    int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("message length %d at offset %d is below the %d header bytes", e.Length, e.Offset, e.Min)
}

func (e *LengthError) Unwrap() error { return ErrBadLength }

// rangeError reports a value that does not fit its wire field.
func rangeError(field string, v, limit uint64) error {
	return fmt.Errorf("%w: %s %d exceeds %d", ErrFieldRange, field, v, limit)
}

// noPartial drops the buffer of a failed encode.
func noPartial(b []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

// truncated builds a TruncatedError when fewer than need bytes remain at off.
func truncated(data []byte, off, need int) error {
	if have := len(data) - off; have < need {
		if have < 0 {
			have = 0
		}
		return &TruncatedError{Offset: off, Expected: need, Got: have}
	}
	return nil
}

// rebase shifts the offset carried by err by base, so errors from a nested
// decode point into the caller's buffer.
func rebase(err error, base int) error {
	if err == nil || base == 0 {
		return err
	}
	var (
		te  *TruncatedError
		ti  *TypeInfoError
		ac  *ArgumentCountError
		tb  *TrailingBytesError
		enc *EncodingError
		bm  *BadMagicError
		le  *LengthError
	)
	switch {
	case errors.As(err, &te):
		c := *te
		c.Offset += base
		return &c
	case errors.As(err, &ti):
		c := *ti
		c.Offset += base
		return &c
	case errors.As(err, &ac):
		c := *ac
		c.Offset += base
		return &c
	case errors.As(err, &tb):
		c := *tb
		c.Offset += base
		return &c
	case errors.As(err, &enc):
		c := *enc
		c.Offset += base
		return &c
	case errors.As(err, &bm):
		c := *bm
		c.Offset += base
		return &c
	case errors.As(err, &le):
		c := *le
		c.Offset += base
		return &c
	}
	return err
}
