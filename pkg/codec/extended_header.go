package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// FrameType is the FRTP byte of a segmented message.
type FrameType uint8

const (
	FrameFirst FrameType = iota
	FrameConsecutive
	FrameLast
	FrameAbort
)

func (f FrameType) String() string {
	switch f {
	case FrameFirst:
		return "first"
	case FrameConsecutive:
		return "consecutive"
	case FrameLast:
		return "last"
	case FrameAbort:
		return "abort"
	default:
		return fmt.Sprintf("frame(%d)", uint8(f))
	}
}

// Segment describes one frame of a segmented message. Only the field selected
// by FrameType is meaningful.
type Segment struct {
	FrameType   FrameType
	TotalLength uint64 // first frame
	Sequence    uint32 // consecutive frame
	AbortReason uint8  // abort frame
}

// ExtendedHeader holds the optional fields announced by the header word.
// Present carries the extended-header bits of that word; a field is written
// only when its bit is set.
type ExtendedHeader struct {
	Present      HeaderType
	EcuID        string
	AppID        string
	ContextID    string
	SessionID    uint32
	FileName     string
	LineNumber   uint32
	Tags         []string
	PrivateValue []byte
	Segment      Segment

	// Raw is the verbatim header as decoded. Encoding ignores it.
	Raw []byte
}

// DecodeExtendedHeader decodes the fields flagged in h from the start of
// data and returns the header with the number of bytes consumed.
func DecodeExtendedHeader(data []byte, h HeaderType) (*ExtendedHeader, int, error) {
	x := &ExtendedHeader{Present: h & ExtendedFlags}
	c := cursor{data: data}

	if h.Has(WithEcuID) {
		x.EcuID = c.shortString()
	}
	if h.Has(WithAppID) {
		x.AppID = c.shortString()
		x.ContextID = c.shortString()
	}
	if h.Has(WithSessionID) {
		x.SessionID = c.u32()
	}
	if h.Has(WithSourceFileLine) {
		x.FileName = c.shortString()
		x.LineNumber = c.u32()
	}
	if h.Has(WithTags) {
		n := int(c.u8())
		if c.err == nil && n > 0 {
			x.Tags = make([]string, 0, n)
			for i := 0; i < n && c.err == nil; i++ {
				x.Tags = append(x.Tags, c.shortString())
			}
		}
	}
	if h.Has(WithPrivateValue) {
		n := int(c.u16())
		x.PrivateValue = bytes.Clone(c.bytes(n))
	}
	if h.Has(WithSegmentation) {
		x.Segment.FrameType = FrameType(c.u8())
		switch x.Segment.FrameType {
		case FrameFirst:
			x.Segment.TotalLength = c.u64()
		case FrameConsecutive:
			x.Segment.Sequence = c.u32()
		case FrameAbort:
			x.Segment.AbortReason = c.u8()
		}
	}
	if c.err != nil {
		return nil, 0, c.err
	}
	x.Raw = bytes.Clone(data[:c.off])
	return x, c.off, nil
}

// Len returns the encoded size of the header.
func (x *ExtendedHeader) Len() int {
	n := 0
	p := x.Present
	if p.Has(WithEcuID) {
		n += 1 + len(x.EcuID)
	}
	if p.Has(WithAppID) {
		n += 2 + len(x.AppID) + len(x.ContextID)
	}
	if p.Has(WithSessionID) {
		n += 4
	}
	if p.Has(WithSourceFileLine) {
		n += 1 + len(x.FileName) + 4
	}
	if p.Has(WithTags) {
		n++
		for _, t := range x.Tags {
			n += 1 + len(t)
		}
	}
	if p.Has(WithPrivateValue) {
		n += 2 + len(x.PrivateValue)
	}
	if p.Has(WithSegmentation) {
		n++
		switch x.Segment.FrameType {
		case FrameFirst:
			n += 8
		case FrameConsecutive:
			n += 4
		case FrameAbort:
			n++
		}
	}
	return n
}

// Encode serializes the flagged fields.
func (x *ExtendedHeader) Encode() ([]byte, error) {
	return noPartial(x.AppendTo(make([]byte, 0, x.Len())))
}

// AppendTo appends the serialized header to dst. On error dst is returned
// unchanged.
func (x *ExtendedHeader) AppendTo(dst []byte) ([]byte, error) {
	out := dst
	var err error
	short := func(field, s string) {
		if err != nil {
			return
		}
		if len(s) > 0xFF {
			err = rangeError(field+" length", uint64(len(s)), 0xFF)
			return
		}
		out = append(out, byte(len(s)))
		out = append(out, s...)
	}

	p := x.Present
	if p.Has(WithEcuID) {
		short("ecu id", x.EcuID)
	}
	if p.Has(WithAppID) {
		short("app id", x.AppID)
		short("context id", x.ContextID)
	}
	if p.Has(WithSessionID) {
		out = binary.BigEndian.AppendUint32(out, x.SessionID)
	}
	if p.Has(WithSourceFileLine) {
		short("file name", x.FileName)
		out = binary.BigEndian.AppendUint32(out, x.LineNumber)
	}
	if p.Has(WithTags) {
		if len(x.Tags) > 0xFF {
			return dst, rangeError("tag count", uint64(len(x.Tags)), 0xFF)
		}
		out = append(out, byte(len(x.Tags)))
		for _, t := range x.Tags {
			short("tag", t)
		}
	}
	if p.Has(WithPrivateValue) {
		if len(x.PrivateValue) > 0xFFFF {
			return dst, rangeError("private value length", uint64(len(x.PrivateValue)), 0xFFFF)
		}
		out = binary.BigEndian.AppendUint16(out, uint16(len(x.PrivateValue)))
		out = append(out, x.PrivateValue...)
	}
	if p.Has(WithSegmentation) {
		out = append(out, byte(x.Segment.FrameType))
		switch x.Segment.FrameType {
		case FrameFirst:
			out = binary.BigEndian.AppendUint64(out, x.Segment.TotalLength)
		case FrameConsecutive:
			out = binary.BigEndian.AppendUint32(out, x.Segment.Sequence)
		case FrameAbort:
			out = append(out, x.Segment.AbortReason)
		}
	}
	if err != nil {
		return dst, err
	}
	return out, nil
}

func (x *ExtendedHeader) String() string {
	var parts []string
	if x.AppID != "" || x.ContextID != "" {
		parts = append(parts, x.AppID+"/"+x.ContextID)
	}
	if x.Present.Has(WithSessionID) {
		parts = append(parts, fmt.Sprintf("session=%d", x.SessionID))
	}
	if x.FileName != "" {
		parts = append(parts, fmt.Sprintf("%s:%d", x.FileName, x.LineNumber))
	}
	if len(x.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(x.Tags, ","))
	}
	if x.Present.Has(WithSegmentation) {
		parts = append(parts, "segment="+x.Segment.FrameType.String())
	}
	return strings.Join(parts, " ")
}

// cursor is a big-endian reader that latches the first truncation.
type cursor struct {
	data []byte
	off  int
	err  error
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if err := truncated(c.data, c.off, n); err != nil {
		c.err = err
		return nil
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() uint8 {
	if b := c.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if b := c.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if b := c.bytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (c *cursor) u64() uint64 {
	if b := c.bytes(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// shortString reads a 1-byte length followed by that many bytes.
func (c *cursor) shortString() string {
	n := int(c.u8())
	return string(c.bytes(n))
}
