package codec

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Charset names understood without a lookup. Any other IANA charset name is
// resolved through golang.org/x/text.
const (
	CharsetASCII = "ascii"
	CharsetUTF8  = "utf-8"
)

var errUnknownCharset = errors.New("unknown charset")

// normalizeCharset folds the aliases of the two built-in charsets.
func normalizeCharset(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ascii", "us-ascii", "ansi_x3.4-1968", "iso646-us":
		return CharsetASCII
	case "utf-8", "utf8":
		return CharsetUTF8
	default:
		return name
	}
}

func lookupCharset(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, errUnknownCharset
	}
	if enc == nil {
		// registered with IANA but not implemented by x/text
		return nil, errUnknownCharset
	}
	return enc, nil
}

// ValidCharset reports whether name can be used as a string charset.
func ValidCharset(name string) bool {
	switch normalizeCharset(name) {
	case CharsetASCII, CharsetUTF8:
		return true
	}
	_, err := lookupCharset(name)
	return err == nil
}

// decodeText converts b from charset to a Go string. The returned
// *EncodingError carries an offset relative to b.
func decodeText(b []byte, charset string) (string, error) {
	switch cs := normalizeCharset(charset); cs {
	case CharsetASCII:
		for i, c := range b {
			if c >= utf8.RuneSelf {
				return "", &EncodingError{Charset: cs, Offset: i}
			}
		}
		return string(b), nil
	case CharsetUTF8:
		if !utf8.Valid(b) {
			return "", &EncodingError{Charset: cs, Offset: firstInvalidUTF8(b)}
		}
		return string(b), nil
	default:
		enc, err := lookupCharset(cs)
		if err != nil {
			return "", &EncodingError{Charset: cs, Err: err}
		}
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", &EncodingError{Charset: cs, Err: err}
		}
		return string(out), nil
	}
}

// encodeText converts s into charset bytes.
func encodeText(s string, charset string) ([]byte, error) {
	switch cs := normalizeCharset(charset); cs {
	case CharsetASCII:
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return nil, &EncodingError{Charset: cs, Offset: i}
			}
		}
		return []byte(s), nil
	case CharsetUTF8:
		if !utf8.ValidString(s) {
			return nil, &EncodingError{Charset: cs, Offset: firstInvalidUTF8([]byte(s))}
		}
		return []byte(s), nil
	default:
		enc, err := lookupCharset(cs)
		if err != nil {
			return nil, &EncodingError{Charset: cs, Err: err}
		}
		out, err := enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, &EncodingError{Charset: cs, Err: err}
		}
		return out, nil
	}
}

func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
