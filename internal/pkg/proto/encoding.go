package proto

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding tells AddItem how the wire bytes of an item are laid out. It
// combines a byte order, a character set for text categories and a time
// layout for time categories.
type Encoding uint32

const (
	EncBigEndian    Encoding = 0
	EncLittleEndian Encoding = 1 << 0

	EncASCII       Encoding = 0 << 1
	EncUTF8        Encoding = 1 << 1
	EncUTF16       Encoding = 2 << 1
	EncISO88591    Encoding = 3 << 1
	EncWindows1252 Encoding = 4 << 1
	charsetMask    Encoding = 7 << 1

	// EncTimeSecsNsecs is 4 bytes of seconds followed by 4 bytes of
	// nanoseconds. EncTimeSecsUsecs uses microseconds instead.
	EncTimeSecsNsecs Encoding = 0 << 4
	EncTimeSecs      Encoding = 1 << 4
	EncTimeSecsUsecs Encoding = 2 << 4
	timeMask         Encoding = 3 << 4

	EncNA = EncBigEndian
)

func (e Encoding) byteOrder() binary.ByteOrder {
	if e&EncLittleEndian != 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (e Encoding) charset() Encoding {
	return e & charsetMask
}

func (e Encoding) timeLayout() Encoding {
	return e & timeMask
}

// timeWireSize is the byte count a time layout occupies.
func (e Encoding) timeWireSize() int {
	if e.timeLayout() == EncTimeSecs {
		return 4
	}
	return 8
}

// decodeText converts wire bytes to UTF-8. Undecodable sequences become
// U+FFFD.
func decodeText(b []byte, enc Encoding) string {
	switch enc.charset() {
	case EncUTF8:
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	case EncUTF16:
		order := unicode.BigEndian
		if enc&EncLittleEndian != 0 {
			order = unicode.LittleEndian
		}
		return decodeWith(unicode.UTF16(order, unicode.IgnoreBOM), b)
	case EncISO88591:
		return decodeWith(charmap.ISO8859_1, b)
	case EncWindows1252:
		return decodeWith(charmap.Windows1252, b)
	default:
		return decodeASCII(b)
	}
}

func decodeWith(e encoding.Encoding, b []byte) string {
	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

func decodeASCII(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= utf8.RuneSelf {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// terminator returns the byte width of a NUL character in the charset.
func terminator(enc Encoding) []byte {
	if enc.charset() == EncUTF16 {
		return []byte{0, 0}
	}
	return []byte{0}
}

// trimAtNUL cuts b before the first NUL character.
func trimAtNUL(b []byte, enc Encoding) []byte {
	nul := terminator(enc)
	if len(nul) == 1 {
		if i := bytes.IndexByte(b, 0); i >= 0 {
			return b[:i]
		}
		return b
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return b[:i]
		}
	}
	return b
}

// findNUL returns the length through the terminating NUL of a string that
// starts at b[0], or -1 if none is captured.
func findNUL(b []byte, enc Encoding) int {
	nul := terminator(enc)
	if len(nul) == 1 {
		if i := bytes.IndexByte(b, 0); i >= 0 {
			return i + 1
		}
		return -1
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i + 2
		}
	}
	return -1
}
