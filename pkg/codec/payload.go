package codec

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
)

// MessageIDSize is the size of a non-verbose message id.
const MessageIDSize = 4

// Payload is the body of a record: either *VerbosePayload or
// *NonVerbosePayload.
type Payload interface {
	// Encode serializes the payload in order.
	Encode(order Endianness) ([]byte, error)
	// Len returns the number of bytes Encode produces.
	Len() int
	String() string

	appendTo(dst []byte, order Endianness) ([]byte, error)
}

// VerbosePayload is an ordered list of self-describing arguments.
type VerbosePayload struct {
	Arguments []Argument
}

// DecodeVerbosePayload decodes exactly nArgs arguments from data. When strict
// is set, bytes left after the last argument are an error.
func DecodeVerbosePayload(data []byte, order Endianness, nArgs int, charset string, strict bool) (*VerbosePayload, error) {
	if order == EndianUnset {
		return nil, ErrEndianUnknown
	}
	if nArgs < 0 {
		return nil, &ArgumentCountError{Expected: nArgs}
	}
	args := make([]Argument, 0, nArgs)
	off := 0
	for len(args) < nArgs {
		if off >= len(data) {
			return nil, &ArgumentCountError{Expected: nArgs, Decoded: len(args), Offset: off}
		}
		arg, n, err := DecodeArgument(data[off:], order, charset)
		if err != nil {
			return nil, rebase(err, off)
		}
		args = append(args, arg)
		off += n
	}
	if strict && off < len(data) {
		return nil, &TrailingBytesError{Offset: off, N: len(data) - off}
	}
	return &VerbosePayload{Arguments: args}, nil
}

// Encode concatenates the encoded arguments. order overrides the endianness
// stored on each argument.
func (p *VerbosePayload) Encode(order Endianness) ([]byte, error) {
	return noPartial(p.appendTo(make([]byte, 0, p.Len()), order))
}

func (p *VerbosePayload) appendTo(dst []byte, order Endianness) ([]byte, error) {
	out := dst
	var err error
	for _, a := range p.Arguments {
		if out, err = AppendArgument(out, a, order); err != nil {
			return dst, err
		}
	}
	return out, nil
}

// Len sums the on-wire footprint of the arguments.
func (p *VerbosePayload) Len() int {
	n := 0
	for _, a := range p.Arguments {
		n += a.Len()
	}
	return n
}

// String joins the argument renderings with single spaces.
func (p *VerbosePayload) String() string {
	parts := make([]string, len(p.Arguments))
	for i, a := range p.Arguments {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// Equal reports whether both payloads hold structurally equal arguments.
func (p *VerbosePayload) Equal(o *VerbosePayload) bool {
	if len(p.Arguments) != len(o.Arguments) {
		return false
	}
	for i := range p.Arguments {
		if !ArgumentsEqual(p.Arguments[i], o.Arguments[i]) {
			return false
		}
	}
	return true
}

// NonVerbosePayload is a message id followed by data whose layout is defined
// outside the message. Order, when set, is the byte order the id was read in.
type NonVerbosePayload struct {
	MessageID uint32
	Data      []byte
	Order     Endianness
}

// DecodeNonVerbosePayload reads the message id in order and keeps a copy of
// the remaining bytes.
func DecodeNonVerbosePayload(data []byte, order Endianness) (*NonVerbosePayload, error) {
	if order == EndianUnset {
		return nil, ErrEndianUnknown
	}
	if err := truncated(data, 0, MessageIDSize); err != nil {
		return nil, err
	}
	return &NonVerbosePayload{
		MessageID: order.order().Uint32(data),
		Data:      bytes.Clone(data[MessageIDSize:]),
		Order:     order,
	}, nil
}

// Encode emits the message id in order followed by Data.
func (p *NonVerbosePayload) Encode(order Endianness) ([]byte, error) {
	return noPartial(p.appendTo(make([]byte, 0, p.Len()), order))
}

func (p *NonVerbosePayload) appendTo(dst []byte, order Endianness) ([]byte, error) {
	e, err := resolve(order, p.Order)
	if err != nil {
		return dst, err
	}
	dst = e.order().AppendUint32(dst, p.MessageID)
	return append(dst, p.Data...), nil
}

// Len returns MessageIDSize plus the length of Data.
func (p *NonVerbosePayload) Len() int { return MessageIDSize + len(p.Data) }

func (p *NonVerbosePayload) String() string {
	return "[" + strconv.FormatUint(uint64(p.MessageID), 10) + "] " + hex.EncodeToString(p.Data)
}

// Equal compares id and data.
func (p *NonVerbosePayload) Equal(o *NonVerbosePayload) bool {
	return p.MessageID == o.MessageID && bytes.Equal(p.Data, o.Data)
}
