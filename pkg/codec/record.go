package codec

import (
	"strconv"
	"strings"
	"time"
)

// Record is one stored DLT message.
type Record struct {
	Storage  StorageHeader
	Header   BaseHeader
	Extended *ExtendedHeader
	Payload  Payload

	// Order is the byte order of the payload.
	Order Endianness
}

// DecodeRecord decodes the record at the start of data and returns it with
// the number of bytes consumed. The payload byte order is
// opts.DefaultEndianness, or big-endian when unset.
func DecodeRecord(data []byte, opts Options) (Record, int, error) {
	sh, err := DecodeStorageHeader(data)
	if err != nil {
		return Record{}, 0, err
	}
	rest := data[StorageHeaderSize:]

	bh, hn, err := DecodeBaseHeader(rest)
	if err != nil {
		return Record{}, 0, rebase(err, StorageHeaderSize)
	}
	total := int(bh.Length)
	if total < hn {
		return Record{}, 0, &LengthError{Offset: StorageHeaderSize + 5, Length: total, Min: hn}
	}
	if err := truncated(rest, 0, total); err != nil {
		return Record{}, 0, rebase(err, StorageHeaderSize)
	}
	msg := rest[:total]

	rec := Record{Storage: sh, Header: bh, Order: opts.DefaultEndianness}
	if rec.Order == EndianUnset {
		rec.Order = BigEndian
	}

	off := hn
	if bh.Type.HasExtendedHeader() {
		x, xn, err := DecodeExtendedHeader(msg[off:], bh.Type)
		if err != nil {
			return Record{}, 0, rebase(err, StorageHeaderSize+off)
		}
		rec.Extended = x
		off += xn
	}

	region := msg[off:]
	base := StorageHeaderSize + off
	switch bh.ContentType() {
	case ContentVerbose:
		p, err := DecodeVerbosePayload(region, rec.Order, int(bh.NumArgs), opts.DefaultCharset, opts.StrictTrailingBytes)
		if err != nil {
			return Record{}, 0, rebase(err, base)
		}
		rec.Payload = p
	case ContentNonVerbose:
		rec.Payload = &NonVerbosePayload{MessageID: bh.MessageID, Data: append([]byte(nil), region...), Order: rec.Order}
	case ContentControl:
		p, err := DecodeNonVerbosePayload(region, rec.Order)
		if err != nil {
			return Record{}, 0, rebase(err, base)
		}
		rec.Payload = p
	default:
		return Record{}, 0, &ContentTypeError{ContentType: bh.ContentType()}
	}
	return rec, StorageHeaderSize + total, nil
}

// Encode serializes the record. order overrides rec.Order; with neither set
// the payload is written big-endian. LEN, NOAR of verbose records, MSID of
// non-verbose records and the extended-header bits of the header word are
// derived from the record contents.
func (r Record) Encode(order Endianness) ([]byte, error) {
	e, err := resolve(order, r.Order)
	if err != nil {
		e = BigEndian
	}

	h := r.Header
	h.Type &^= ExtendedFlags
	var ext []byte
	if r.Extended != nil {
		h.Type |= r.Extended.Present & ExtendedFlags
		if ext, err = r.Extended.Encode(); err != nil {
			return nil, err
		}
	}

	var body []byte
	switch p := r.Payload.(type) {
	case *VerbosePayload:
		if h.ContentType() != ContentVerbose {
			return nil, &ContentTypeError{ContentType: h.ContentType()}
		}
		if len(p.Arguments) > 0xFF {
			return nil, rangeError("argument count", uint64(len(p.Arguments)), 0xFF)
		}
		h.NumArgs = uint8(len(p.Arguments))
		if body, err = p.Encode(e); err != nil {
			return nil, err
		}
	case *NonVerbosePayload:
		switch h.ContentType() {
		case ContentNonVerbose:
			h.MessageID = p.MessageID
			body = p.Data
		case ContentControl:
			if body, err = p.Encode(e); err != nil {
				return nil, err
			}
		default:
			return nil, &ContentTypeError{ContentType: h.ContentType()}
		}
	default:
		return nil, &ContentTypeError{ContentType: h.ContentType()}
	}

	total := h.Len() + len(ext) + len(body)
	if total > 0xFFFF {
		return nil, rangeError("message length", uint64(total), 0xFFFF)
	}
	h.Length = uint16(total)

	out := make([]byte, 0, StorageHeaderSize+total)
	if out, err = r.Storage.AppendTo(out); err != nil {
		return nil, err
	}
	if out, err = h.AppendTo(out); err != nil {
		return nil, err
	}
	out = append(out, ext...)
	return append(out, body...), nil
}

// Len returns the number of bytes Encode produces.
func (r Record) Len() int {
	n := StorageHeaderSize + r.Header.Len()
	if r.Extended != nil {
		n += r.Extended.Len()
	}
	if r.Payload != nil {
		n += r.Payload.Len()
		if r.Header.ContentType() == ContentNonVerbose {
			n -= MessageIDSize
		}
	}
	return n
}

// EcuID returns the extended-header ECU id when present, else the storage
// header's.
func (r Record) EcuID() string {
	if r.Extended != nil && r.Extended.Present.Has(WithEcuID) {
		return r.Extended.EcuID
	}
	return r.Storage.EcuID
}

// String renders the record on one line: capture time, counter, ECU, app and
// context ids, message info and payload.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Storage.Time().Format(time.RFC3339Nano))
	b.WriteString(" #")
	b.WriteString(strconv.Itoa(int(r.Header.Counter)))
	b.WriteByte(' ')
	b.WriteString(orDash(r.EcuID()))
	if r.Extended != nil {
		b.WriteByte(' ')
		b.WriteString(orDash(r.Extended.AppID))
		b.WriteByte(' ')
		b.WriteString(orDash(r.Extended.ContextID))
	}
	b.WriteByte(' ')
	switch r.Header.ContentType() {
	case ContentNonVerbose:
		b.WriteString("non-verbose")
	default:
		b.WriteString(r.Header.MessageInfo.String())
	}
	if r.Payload != nil {
		b.WriteByte(' ')
		b.WriteString(r.Payload.String())
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
