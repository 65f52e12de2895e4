package ftypes

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type bytesOps struct{}

func (bytesOps) parse(fv *FValue, s string, _ bool) error {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return ErrSyntax
		}
		fv.bytes = []byte(u)
		return nil
	}
	b, err := parseHexBytes(s)
	if err != nil {
		return err
	}
	fv.bytes = b
	return nil
}

func (bytesOps) render(fv *FValue, mode RenderMode) string {
	if len(fv.bytes) == 0 && mode == RenderFilter {
		return `""`
	}
	return hexColon(fv.bytes)
}

func (bytesOps) eq(a, b *FValue) bool       { return bytes.Equal(a.bytes, b.bytes) }
func (bytesOps) cmp(a, b *FValue) int       { return bytes.Compare(a.bytes, b.bytes) }
func (bytesOps) contains(a, b *FValue) bool { return bytes.Contains(a.bytes, b.bytes) }
func (bytesOps) matches(a, p *FValue) bool  { return p.re.Match(a.bytes) }
func (bytesOps) length(fv *FValue) int      { return len(fv.bytes) }
func (bytesOps) bytesOf(fv *FValue) []byte  { return fv.bytes }

type stringOps struct{}

func (stringOps) parse(fv *FValue, s string, _ bool) error {
	if len(s) >= 2 && s[0] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return ErrSyntax
		}
		fv.str = u
		return nil
	}
	fv.str = s
	return nil
}

func (stringOps) render(fv *FValue, mode RenderMode) string {
	if mode == RenderFilter {
		return strconv.Quote(fv.str)
	}
	return FormatText(fv.str)
}

func (stringOps) eq(a, b *FValue) bool       { return a.str == b.str }
func (stringOps) cmp(a, b *FValue) int       { return strings.Compare(a.str, b.str) }
func (stringOps) contains(a, b *FValue) bool { return strings.Contains(a.str, b.str) }
func (stringOps) matches(a, p *FValue) bool  { return p.re.MatchString(a.str) }
func (stringOps) length(fv *FValue) int      { return len(fv.str) }
func (stringOps) bytesOf(fv *FValue) []byte  { return []byte(fv.str) }

type etherOps struct{}

func (etherOps) parse(fv *FValue, s string, allowPartial bool) error {
	b, err := parseHexBytes(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if len(b) != 6 && !(allowPartial && len(b) > 0 && len(b) < 6) {
		return ErrSyntax
	}
	fv.bytes = b
	return nil
}

func (etherOps) render(fv *FValue, _ RenderMode) string {
	return net.HardwareAddr(fv.bytes).String()
}

func (etherOps) eq(a, b *FValue) bool      { return bytes.Equal(a.bytes, b.bytes) }
func (etherOps) cmp(a, b *FValue) int      { return bytes.Compare(a.bytes, b.bytes) }
func (etherOps) length(fv *FValue) int     { return len(fv.bytes) }
func (etherOps) bytesOf(fv *FValue) []byte { return fv.bytes }

// ipOps handles IPv4 (size 4) and IPv6 (size 16) addresses. Text with a
// prefix length ("10.0.0.0/8") yields a value that compares equal to any
// address inside the network.
type ipOps struct {
	size int
}

func (o ipOps) parse(fv *FValue, s string, _ bool) error {
	s = strings.TrimSpace(s)
	var (
		addr netip.Addr
		bits = o.size * 8
	)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return ErrSyntax
		}
		addr, bits = p.Addr(), p.Bits()
	} else {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return ErrSyntax
		}
		addr = a
	}
	switch {
	case o.size == 4 && addr.Is4():
		a4 := addr.As4()
		fv.bytes = a4[:]
	case o.size == 16 && addr.Is6():
		a16 := addr.As16()
		fv.bytes = a16[:]
	default:
		return ErrSyntax
	}
	fv.prefix = 0
	if bits < o.size*8 {
		fv.prefix = bits
	}
	return nil
}

func (o ipOps) addr(fv *FValue) netip.Addr {
	a, _ := netip.AddrFromSlice(fv.bytes)
	return a
}

func (o ipOps) render(fv *FValue, mode RenderMode) string {
	s := o.addr(fv).String()
	if mode == RenderFilter && fv.prefix > 0 {
		s += "/" + strconv.Itoa(fv.prefix)
	}
	return s
}

func (o ipOps) bits(fv *FValue) int {
	if fv.prefix > 0 {
		return fv.prefix
	}
	return o.size * 8
}

func (o ipOps) eq(a, b *FValue) bool {
	n := min(o.bits(a), o.bits(b))
	return bytes.Equal(maskBytes(a.bytes, n), maskBytes(b.bytes, n))
}

func (o ipOps) cmp(a, b *FValue) int      { return bytes.Compare(a.bytes, b.bytes) }
func (o ipOps) length(fv *FValue) int     { return len(fv.bytes) }
func (o ipOps) bytesOf(fv *FValue) []byte { return fv.bytes }

type guidOps struct{}

func (guidOps) parse(fv *FValue, s string, allowPartial bool) error {
	s = unquoteIfQuoted(strings.TrimSpace(s))
	if u, err := uuid.Parse(s); err == nil {
		fv.bytes = u[:]
		return nil
	}
	if !allowPartial {
		return ErrSyntax
	}
	b, err := parseHexBytes(s)
	if err != nil || len(b) == 0 || len(b) > 16 {
		return ErrSyntax
	}
	fv.bytes = b
	return nil
}

func (guidOps) render(fv *FValue, _ RenderMode) string {
	if len(fv.bytes) != 16 {
		return hexColon(fv.bytes)
	}
	return uuid.UUID(fv.bytes).String()
}

func (guidOps) eq(a, b *FValue) bool      { return bytes.Equal(a.bytes, b.bytes) }
func (guidOps) length(fv *FValue) int     { return len(fv.bytes) }
func (guidOps) bytesOf(fv *FValue) []byte { return fv.bytes }

type patternOps struct{}

func (patternOps) parse(fv *FValue, s string, _ bool) error {
	src := unquoteIfQuoted(s)
	re, err := regexp.Compile(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	fv.re = re
	fv.str = src
	return nil
}

func (patternOps) render(fv *FValue, mode RenderMode) string {
	if mode == RenderFilter {
		return strconv.Quote(fv.str)
	}
	return fv.str
}

// parseHexBytes reads byte strings written as "de:ad:be:ef", "de-ad-be-ef",
// "dead.beef" or "deadbeef".
func parseHexBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrSyntax
	}
	sep := strings.IndexAny(s, ":-.")
	if sep < 0 {
		if len(s) == 1 {
			s = "0" + s
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, ErrSyntax
		}
		return b, nil
	}
	var out []byte
	for _, part := range strings.Split(s, s[sep:sep+1]) {
		switch {
		case len(part) == 1:
			part = "0" + part
		case len(part) == 0, len(part)%2 != 0:
			return nil, ErrSyntax
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, ErrSyntax
		}
		out = append(out, b...)
	}
	return out, nil
}

func hexColon(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hex.EncodeToString([]byte{c}))
	}
	return sb.String()
}

func maskBytes(b []byte, bits int) []byte {
	out := make([]byte, len(b))
	for i := range b {
		switch {
		case bits >= 8:
			out[i] = b[i]
			bits -= 8
		case bits > 0:
			out[i] = b[i] & byte(0xff<<(8-bits))
			bits = 0
		}
	}
	return out
}

// FormatText escapes unprintable characters so text can be shown on a
// single line. Printable text is returned unchanged.
func FormatText(s string) string {
	clean := true
	for _, r := range s {
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		default:
			q := strconv.QuoteRune(r)
			sb.WriteString(q[1 : len(q)-1])
		}
		i += size
	}
	return sb.String()
}
