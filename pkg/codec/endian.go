package codec

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Endianness selects the byte order of multi-byte payload fields.
type Endianness uint8

const (
	// EndianUnset means no byte order was chosen; encoders fall back to the
	// order stored on the value and fail with ErrEndianUnknown if there is none.
	EndianUnset Endianness = iota
	BigEndian
	LittleEndian
)

// ByteOrder returns the binary.ByteOrder for e, or nil for EndianUnset.
func (e Endianness) ByteOrder() binary.ByteOrder {
	switch e {
	case BigEndian:
		return binary.BigEndian
	case LittleEndian:
		return binary.LittleEndian
	default:
		return nil
	}
}

// MSBFirst reports whether e is big-endian.
func (e Endianness) MSBFirst() bool {
	return e == BigEndian
}

func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return "unset"
	}
}

// FromMSBFirst converts a msb-first flag into an Endianness.
func FromMSBFirst(msbFirst bool) Endianness {
	if msbFirst {
		return BigEndian
	}
	return LittleEndian
}

// ParseEndianness parses "big", "little" or "unset" (case-insensitive).
// The empty string parses as EndianUnset.
func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "big", "msb", "be":
		return BigEndian, nil
	case "little", "lsb", "le":
		return LittleEndian, nil
	case "", "unset":
		return EndianUnset, nil
	default:
		return EndianUnset, fmt.Errorf("invalid endianness %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Endianness) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Endianness) UnmarshalText(text []byte) error {
	v, err := ParseEndianness(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// byteOrder is satisfied by binary.BigEndian and binary.LittleEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (e Endianness) order() byteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// resolve picks the first set order out of explicit and stored.
func resolve(explicit, stored Endianness) (Endianness, error) {
	if explicit != EndianUnset {
		return explicit, nil
	}
	if stored != EndianUnset {
		return stored, nil
	}
	return EndianUnset, ErrEndianUnknown
}
