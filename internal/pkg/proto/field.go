package proto

import (
	"fmt"
	"math/bits"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
)

// FieldID identifies a registered protocol or field. IDs are dense and
// start at 0.
type FieldID int

// NoParent is the parent of a protocol root.
const NoParent FieldID = -1

// SubtreeKind tags a node that nests further items. Kinds are minted by
// Registry.RegisterSubtrees; the zero value means "not a subtree".
type SubtreeKind int

// Base selects how integer values are shown in labels.
type Base int

const (
	BaseNone Base = iota
	BaseDec
	BaseHex
	BaseOct
	BaseDecHex
	BaseHexDec
)

var baseNames = [...]string{
	BaseNone:   "BASE_NONE",
	BaseDec:    "BASE_DEC",
	BaseHex:    "BASE_HEX",
	BaseOct:    "BASE_OCT",
	BaseDecHex: "BASE_DEC_HEX",
	BaseHexDec: "BASE_HEX_DEC",
}

func (b Base) String() string {
	if b < 0 || int(b) >= len(baseNames) {
		return fmt.Sprintf("Base(%d)", int(b))
	}
	return baseNames[b]
}

// HeaderField describes one protocol or field. Descriptors are immutable
// once registered.
type HeaderField struct {
	ID        FieldID
	Name      string
	Abbrev    string
	ShortName string // protocols only
	Type      ftypes.Enum
	Display   Base
	Strings   map[uint64]string
	Bitmask   uint64
	BitWidth  int // booleans: width of the integer the flag is packed in
	Blurb     string
	Parent    FieldID

	sameNameNext *HeaderField
}

// FieldRegistration pairs a descriptor with the variable that receives its
// ID, for batch registration.
type FieldRegistration struct {
	ID    *FieldID
	Field HeaderField
}

// IsProtocol reports whether the descriptor is a protocol root.
func (hf *HeaderField) IsProtocol() bool {
	return hf.Parent == NoParent
}

// FieldType returns the descriptor's value category.
func (hf *HeaderField) FieldType() *ftypes.FieldType {
	return ftypes.Lookup(hf.Type)
}

// SameNameNext returns the next older descriptor sharing this abbreviation,
// or nil at the end of the chain.
func (hf *HeaderField) SameNameNext() *HeaderField {
	return hf.sameNameNext
}

// Shift returns the number of trailing zero bits in the bitmask.
func (hf *HeaderField) Shift() int {
	if hf.Bitmask == 0 {
		return 0
	}
	return bits.TrailingZeros64(hf.Bitmask)
}

// apply masks and shifts a raw wire integer.
func (hf *HeaderField) apply(raw uint64) uint64 {
	if hf.Bitmask == 0 {
		return raw
	}
	return (raw & hf.Bitmask) >> hf.Shift()
}

// valueBits returns the significant width of a decoded integer: the mask
// width when a mask is set, otherwise the wire width.
func (hf *HeaderField) valueBits(wireBytes int) int {
	if hf.Bitmask == 0 {
		return wireBytes * 8
	}
	return 64 - bits.LeadingZeros64(hf.Bitmask>>hf.Shift())
}

// hexDigits is the padded width of hex renderings.
func (hf *HeaderField) hexDigits() int {
	if hf.Bitmask != 0 {
		return (hf.valueBits(0) + 3) / 4
	}
	if n := hf.FieldType().WireSize; n > 0 {
		return n * 2
	}
	return 1
}

// formatUint renders an unsigned integer in the descriptor's base.
func (hf *HeaderField) formatUint(v uint64) string {
	w := hf.hexDigits()
	switch hf.Display {
	case BaseHex:
		return fmt.Sprintf("0x%0*x", w, v)
	case BaseOct:
		return fmt.Sprintf("%#o", v)
	case BaseDecHex:
		return fmt.Sprintf("%d (0x%0*x)", v, w, v)
	case BaseHexDec:
		return fmt.Sprintf("0x%0*x (%d)", w, v, v)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// formatInt renders a signed integer. Hex and octal forms show the two's
// complement bits of the nominal width.
func (hf *HeaderField) formatInt(v int64) string {
	w := hf.hexDigits()
	u := uint64(v)
	if w < 16 {
		u &= 1<<(uint(w)*4) - 1
	}
	switch hf.Display {
	case BaseHex:
		return fmt.Sprintf("0x%0*x", w, u)
	case BaseOct:
		return fmt.Sprintf("%#o", u)
	case BaseDecHex:
		return fmt.Sprintf("%d (0x%0*x)", v, w, u)
	case BaseHexDec:
		return fmt.Sprintf("0x%0*x (%d)", w, u, v)
	default:
		return fmt.Sprintf("%d", v)
	}
}
