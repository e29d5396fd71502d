package codec

import (
	"encoding/binary"
	"fmt"
	"time"
)

// HeaderType is the 32-bit word opening the base header. It is always
// big-endian on the wire.
type HeaderType uint32

const (
	maskContentType HeaderType = 0x3

	WithEcuID          HeaderType = 1 << 2  // WEID
	WithAppID          HeaderType = 1 << 3  // WACID
	WithSessionID      HeaderType = 1 << 4  // WSID
	WithSourceFileLine HeaderType = 1 << 8  // WSFLN
	WithTags           HeaderType = 1 << 9  // WTGS
	WithPrivateValue   HeaderType = 1 << 10 // WPVL
	WithSegmentation   HeaderType = 1 << 11 // WSGM

	versionShift            = 5
	maskVersion  HeaderType = 0x7 << versionShift

	// ExtendedFlags is the set of bits announcing an extended header.
	ExtendedFlags = WithEcuID | WithAppID | WithSessionID | WithSourceFileLine |
		WithTags | WithPrivateValue | WithSegmentation
)

// ProtocolVersion is the header version written by NewHeaderType.
const ProtocolVersion = 2

// NewHeaderType builds a header word for content type ct at ProtocolVersion.
func NewHeaderType(ct ContentType) HeaderType {
	return HeaderType(ct)&maskContentType | HeaderType(ProtocolVersion)<<versionShift
}

// ContentType returns the CNTI field.
func (h HeaderType) ContentType() ContentType { return ContentType(h & maskContentType) }

// Version returns the VERS field.
func (h HeaderType) Version() uint8 { return uint8((h & maskVersion) >> versionShift) }

// Has reports whether every bit of flag is set.
func (h HeaderType) Has(flag HeaderType) bool { return h&flag == flag }

// HasExtendedHeader reports whether any extended-header flag is set.
func (h HeaderType) HasExtendedHeader() bool { return h&ExtendedFlags != 0 }

// WithContentType returns h with its CNTI field replaced.
func (h HeaderType) WithContentType(ct ContentType) HeaderType {
	return h&^maskContentType | HeaderType(ct)&maskContentType
}

// ContentType selects the layout of the conditional base-header fields and of
// the payload.
type ContentType uint8

const (
	ContentVerbose ContentType = iota
	ContentNonVerbose
	ContentControl
	ContentReserved
)

func (c ContentType) String() string {
	switch c {
	case ContentVerbose:
		return "verbose"
	case ContentNonVerbose:
		return "non-verbose"
	case ContentControl:
		return "control"
	case ContentReserved:
		return "reserved"
	default:
		return fmt.Sprintf("content(%d)", uint8(c))
	}
}

// MessageInfo is the MSIN byte: message type in bits 1-3, type info in bits
// 4-7.
type MessageInfo uint8

// Message types.
const (
	MessageLog      uint8 = 0
	MessageAppTrace uint8 = 1
	MessageNwTrace  uint8 = 2
	MessageControl  uint8 = 3
)

// Log levels carried as the type info of MessageLog.
const (
	LogFatal   uint8 = 1
	LogError   uint8 = 2
	LogWarn    uint8 = 3
	LogInfo    uint8 = 4
	LogDebug   uint8 = 5
	LogVerbose uint8 = 6
)

// NewMessageInfo packs a message type and its type info.
func NewMessageInfo(msgType, typeInfo uint8) MessageInfo {
	return MessageInfo((msgType&0x7)<<1 | (typeInfo&0xF)<<4)
}

// Type returns MSTP.
func (m MessageInfo) Type() uint8 { return uint8(m>>1) & 0x7 }

// TypeInfo returns MTIN.
func (m MessageInfo) TypeInfo() uint8 { return uint8(m >> 4) }

var (
	messageTypeNames = [...]string{"log", "app_trace", "nw_trace", "control"}
	typeInfoNames    = [...][]string{
		MessageLog:      {"", "fatal", "error", "warn", "info", "debug", "verbose"},
		MessageAppTrace: {"", "variable", "func_in", "func_out", "state", "vfb"},
		MessageNwTrace:  {"", "ipc", "can", "flexray", "most", "ethernet", "someip"},
		MessageControl:  {"", "request", "response", "time"},
	}
)

// TypeName returns the message type name, e.g. "log".
func (m MessageInfo) TypeName() string {
	if t := m.Type(); int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", m.Type())
}

// TypeInfoName returns the name of the type info within the message type,
// e.g. "info" for a log message.
func (m MessageInfo) TypeInfoName() string {
	if t := m.Type(); int(t) < len(typeInfoNames) {
		names := typeInfoNames[t]
		if i := int(m.TypeInfo()); i > 0 && i < len(names) {
			return names[i]
		}
	}
	return fmt.Sprintf("info(%d)", m.TypeInfo())
}

func (m MessageInfo) String() string { return m.TypeName() + " " + m.TypeInfoName() }

// TimestampSize is the size of TMSP2.
const TimestampSize = 9

const maxTimestampSeconds = 1<<40 - 1

// Timestamp is TMSP2: nanoseconds and 40-bit seconds.
type Timestamp struct {
	Seconds     uint64
	Nanoseconds uint32
}

// TimestampFromTime converts t, truncating to the 40-bit seconds range.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: uint64(t.Unix()) & maxTimestampSeconds, Nanoseconds: uint32(t.Nanosecond())}
}

// Time returns the timestamp as a UTC time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nanoseconds)).UTC()
}

func decodeTimestamp(b []byte) Timestamp {
	return Timestamp{
		Nanoseconds: binary.BigEndian.Uint32(b),
		Seconds:     uint64(b[4])<<32 | uint64(binary.BigEndian.Uint32(b[5:])),
	}
}

func (t Timestamp) appendTo(dst []byte) ([]byte, error) {
	if t.Seconds > maxTimestampSeconds {
		return dst, rangeError("timestamp seconds", t.Seconds, maxTimestampSeconds)
	}
	dst = binary.BigEndian.AppendUint32(dst, t.Nanoseconds)
	dst = append(dst, byte(t.Seconds>>32))
	return binary.BigEndian.AppendUint32(dst, uint32(t.Seconds)), nil
}

// BaseHeaderMinSize covers the header word, MCNT and LEN.
const BaseHeaderMinSize = 7

// BaseHeader is the standard header of a DLT message. Fields that the content
// type does not carry are zero.
type BaseHeader struct {
	Type        HeaderType
	Counter     uint8
	Length      uint16 // whole message from the first header byte
	MessageInfo MessageInfo
	NumArgs     uint8
	Timestamp   Timestamp
	MessageID   uint32
}

// headerLen returns the base header size for the given content type.
func headerLen(ct ContentType) int {
	switch ct {
	case ContentVerbose:
		return BaseHeaderMinSize + 2 + TimestampSize
	case ContentNonVerbose:
		return BaseHeaderMinSize + TimestampSize + MessageIDSize
	case ContentControl:
		return BaseHeaderMinSize + 2
	default:
		return BaseHeaderMinSize
	}
}

// Len returns the encoded size of the header.
func (h BaseHeader) Len() int { return headerLen(h.Type.ContentType()) }

// ContentType is shorthand for h.Type.ContentType().
func (h BaseHeader) ContentType() ContentType { return h.Type.ContentType() }

// DecodeBaseHeader decodes the base header at the start of data and returns it
// with the number of bytes consumed.
func DecodeBaseHeader(data []byte) (BaseHeader, int, error) {
	if err := truncated(data, 0, BaseHeaderMinSize); err != nil {
		return BaseHeader{}, 0, err
	}
	h := BaseHeader{
		Type:    HeaderType(binary.BigEndian.Uint32(data)),
		Counter: data[4],
		Length:  binary.BigEndian.Uint16(data[5:]),
	}
	n := h.Len()
	if err := truncated(data, BaseHeaderMinSize, n-BaseHeaderMinSize); err != nil {
		return BaseHeader{}, 0, err
	}

	off := BaseHeaderMinSize
	switch h.ContentType() {
	case ContentVerbose:
		h.MessageInfo = MessageInfo(data[off])
		h.NumArgs = data[off+1]
		h.Timestamp = decodeTimestamp(data[off+2:])
	case ContentNonVerbose:
		h.Timestamp = decodeTimestamp(data[off:])
		h.MessageID = binary.BigEndian.Uint32(data[off+TimestampSize:])
	case ContentControl:
		h.MessageInfo = MessageInfo(data[off])
		h.NumArgs = data[off+1]
	}
	return h, n, nil
}

// Encode serializes the header.
func (h BaseHeader) Encode() ([]byte, error) {
	return noPartial(h.AppendTo(make([]byte, 0, h.Len())))
}

// AppendTo appends the serialized header to dst. On error dst is returned
// unchanged.
func (h BaseHeader) AppendTo(dst []byte) ([]byte, error) {
	out := binary.BigEndian.AppendUint32(dst, uint32(h.Type))
	out = append(out, h.Counter)
	out = binary.BigEndian.AppendUint16(out, h.Length)

	var err error
	switch h.ContentType() {
	case ContentVerbose:
		out = append(out, byte(h.MessageInfo), h.NumArgs)
		if out, err = h.Timestamp.appendTo(out); err != nil {
			return dst, err
		}
	case ContentNonVerbose:
		if out, err = h.Timestamp.appendTo(out); err != nil {
			return dst, err
		}
		out = binary.BigEndian.AppendUint32(out, h.MessageID)
	case ContentControl:
		out = append(out, byte(h.MessageInfo), h.NumArgs)
	}
	return out, nil
}
