// Package codec decodes and encodes messages of the Diagnostic Log and Trace
// (DLT) wire format.
//
// A stored DLT file is a sequence of records. Each record is a storage header
// written by the logger, followed by the message itself: a base header, an
// optional extended header and the payload.
//
// # Record Format
//
//	[StorageHeader(16)][BaseHeader(7..20)][ExtendedHeader(0..n)][Payload]
//
// Storage header fields (integers little-endian):
//   - Magic: "DLT\x01"
//   - Seconds: signed 32-bit capture time
//   - Microseconds: signed 32-bit sub-second part
//   - EcuID: 4 ASCII bytes, NUL padded
//
// Base header fields (integers big-endian):
//   - HTYP: 32-bit header word (content type, presence flags, version)
//   - MCNT: 8-bit message counter
//   - LEN: 16-bit length of the message from the first header byte
//   - MSIN, NOAR: verbose and control messages only
//   - TMSP2: 9-byte timestamp, verbose and non-verbose messages only
//   - MSID: 32-bit message id, non-verbose messages only
//
// # Verbose Arguments
//
// A verbose payload is a sequence of self-describing arguments. Each one opens
// with a 32-bit type-info word (see package typeinfo) that selects the
// variant and its payload size:
//
//	Bool              [TypeInfo(4)][0|1]
//	SInt8..SInt64     [TypeInfo(4)][value(1|2|4|8)]
//	UInt8..UInt64     [TypeInfo(4)][value(1|2|4|8)]
//	Float32, Float64  [TypeInfo(4)][IEEE-754(4|8)]
//	String            [TypeInfo(4)][Len(2)][text][0x00]
//	Raw               [TypeInfo(4)][Len(2)][bytes]
//
// Payload integers use the byte order given to the call. The String length
// includes the terminating NUL.
//
// # Usage
//
//	arg, n, err := codec.DecodeArgument(data, codec.BigEndian, "")
//	if err != nil {
//	    return err
//	}
//	data = data[n:]
//
//	out, err := codec.EncodeArgument(codec.UInt32{Value: 42}, codec.LittleEndian)
//
// Whole records are decoded with DecodeRecord, or through a Codec that carries
// the configured defaults:
//
//	c := codec.NewCodec(codec.DefaultOptions())
//	rec, n, err := c.DecodeRecord(data)
//
// # Error Handling
//
// Every failure is a typed error carrying the byte offset of the offending
// field, relative to the buffer passed to the outermost call. Each typed error
// unwraps to a sentinel such as ErrTruncated or ErrUnsupportedType, so callers
// can branch with errors.Is and inspect details with errors.As. Decoders never
// modify their input and encoders never return partial output.
//
// # Thread Safety
//
// All values in this package are immutable once built and may be shared
// between goroutines.
package codec
