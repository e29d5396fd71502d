package codec

// Options are the defaults a Codec applies when a call leaves the byte order
// or charset open.
type Options struct {
	DefaultEndianness   Endianness
	DefaultCharset      string
	StrictTrailingBytes bool
}

// DefaultOptions returns big-endian, ASCII and strict trailing-byte checks.
func DefaultOptions() Options {
	return Options{
		DefaultEndianness:   BigEndian,
		DefaultCharset:      CharsetASCII,
		StrictTrailingBytes: true,
	}
}

// Codec applies a fixed set of Options to the package-level functions.
type Codec struct {
	opts Options
}

// NewCodec creates a codec with the given defaults.
func NewCodec(opts Options) *Codec {
	return &Codec{opts: opts}
}

// Options returns the codec's defaults.
func (c *Codec) Options() Options { return c.opts }

func (c *Codec) order(e Endianness) Endianness {
	if e == EndianUnset {
		return c.opts.DefaultEndianness
	}
	return e
}

func (c *Codec) charset(cs string) string {
	if cs == "" {
		return c.opts.DefaultCharset
	}
	return cs
}

// DecodeArgument is DecodeArgument with the codec's defaults filling an unset
// order or empty charset.
func (c *Codec) DecodeArgument(data []byte, order Endianness, charset string) (Argument, int, error) {
	return DecodeArgument(data, c.order(order), c.charset(charset))
}

// EncodeArgument resolves the order as explicit, then stored on arg, then the
// codec default.
func (c *Codec) EncodeArgument(arg Argument, order Endianness) ([]byte, error) {
	if order == EndianUnset && arg.Endianness() == EndianUnset {
		order = c.opts.DefaultEndianness
	}
	return EncodeArgument(arg, order)
}

// DecodeVerbosePayload applies the codec's order, charset and trailing-byte
// policy.
func (c *Codec) DecodeVerbosePayload(data []byte, order Endianness, nArgs int) (*VerbosePayload, error) {
	return DecodeVerbosePayload(data, c.order(order), nArgs, c.opts.DefaultCharset, c.opts.StrictTrailingBytes)
}

// DecodeNonVerbosePayload applies the codec's order.
func (c *Codec) DecodeNonVerbosePayload(data []byte, order Endianness) (*NonVerbosePayload, error) {
	return DecodeNonVerbosePayload(data, c.order(order))
}

// DecodeRecord decodes one record with the codec's options.
func (c *Codec) DecodeRecord(data []byte) (Record, int, error) {
	return DecodeRecord(data, c.opts)
}

// EncodeRecord encodes rec in its own order, falling back to the codec
// default.
func (c *Codec) EncodeRecord(rec Record) ([]byte, error) {
	order := rec.Order
	if order == EndianUnset {
		order = c.opts.DefaultEndianness
	}
	return rec.Encode(order)
}
