package ftypes

import (
	"regexp"
	"time"
)

// FValue is one value of a FieldType.
type FValue struct {
	ftype *FieldType

	uinteger uint64
	sinteger int64
	floating float64
	bytes    []byte
	str      string
	tm       time.Time
	dur      time.Duration
	re       *regexp.Regexp

	// prefix is the significant bit count of an address parsed from CIDR
	// text; 0 means every bit is significant.
	prefix int

	freed bool
}

// New constructs a zero value of the category.
func New(e Enum) *FValue {
	return &FValue{ftype: Lookup(e)}
}

// Type returns the value's category descriptor.
func (fv *FValue) Type() *FieldType {
	return fv.ftype
}

// Free releases the memory owned by the value. A value must be freed
// exactly once; freeing it again panics.
func (fv *FValue) Free() {
	if fv.freed {
		contractViolation("free", fv.ftype.Enum, "value already freed")
	}
	fv.bytes = nil
	fv.str = ""
	fv.re = nil
	fv.freed = true
}

// Freed reports whether Free has been called.
func (fv *FValue) Freed() bool {
	return fv.freed
}

func (fv *FValue) live(op string) {
	if fv.freed {
		contractViolation(op, fv.ftype.Enum, "use after free")
	}
}

func (fv *FValue) expect(op string, s storage) {
	fv.live(op)
	if fv.ftype.store != s {
		contractViolation(op, fv.ftype.Enum, "wrong storage for category")
	}
}

// SetUinteger stores an unsigned integer or boolean.
func (fv *FValue) SetUinteger(v uint64) {
	fv.expect("set uinteger", storeUint)
	fv.uinteger = v
}

// SetBoolean stores a boolean as 1 or 0.
func (fv *FValue) SetBoolean(v bool) {
	if fv.ftype.Enum != FTBoolean {
		contractViolation("set boolean", fv.ftype.Enum, "not a boolean")
	}
	if v {
		fv.SetUinteger(1)
	} else {
		fv.SetUinteger(0)
	}
}

// SetSinteger stores a signed integer.
func (fv *FValue) SetSinteger(v int64) {
	fv.expect("set sinteger", storeSint)
	fv.sinteger = v
}

// SetFloating stores a floating point number. Single precision categories
// round the value to float32.
func (fv *FValue) SetFloating(v float64) {
	fv.expect("set floating", storeFloat)
	if fv.ftype.Enum == FTFloat {
		v = float64(float32(v))
	}
	fv.floating = v
}

// SetBytes stores a copy of b. Fixed-size categories require len(b) to
// match their wire size.
func (fv *FValue) SetBytes(b []byte) {
	fv.expect("set bytes", storeBytes)
	if size := fv.ftype.WireSize; size > 0 && len(b) != size {
		contractViolation("set bytes", fv.ftype.Enum, "length does not match wire size")
	}
	fv.bytes = append([]byte(nil), b...)
	fv.prefix = 0
}

// SetString stores text.
func (fv *FValue) SetString(s string) {
	fv.expect("set string", storeString)
	fv.str = s
}

// SetTime stores an absolute time.
func (fv *FValue) SetTime(t time.Time) {
	fv.expect("set time", storeTime)
	fv.tm = t
}

// SetDuration stores a relative time.
func (fv *FValue) SetDuration(d time.Duration) {
	fv.expect("set duration", storeDuration)
	fv.dur = d
}

// Uinteger returns the stored unsigned integer or boolean.
func (fv *FValue) Uinteger() uint64 {
	fv.expect("get uinteger", storeUint)
	return fv.uinteger
}

// Boolean reports whether a boolean value is set.
func (fv *FValue) Boolean() bool {
	return fv.Uinteger() != 0
}

// Sinteger returns the stored signed integer.
func (fv *FValue) Sinteger() int64 {
	fv.expect("get sinteger", storeSint)
	return fv.sinteger
}

// Floating returns the stored floating point number.
func (fv *FValue) Floating() float64 {
	fv.expect("get floating", storeFloat)
	return fv.floating
}

// Bytes returns the stored bytes. The slice is owned by the value.
func (fv *FValue) Bytes() []byte {
	fv.expect("get bytes", storeBytes)
	return fv.bytes
}

// String returns the stored text. Use Render for other categories.
func (fv *FValue) String() string {
	fv.expect("get string", storeString)
	return fv.str
}

// Time returns the stored absolute time.
func (fv *FValue) Time() time.Time {
	fv.expect("get time", storeTime)
	return fv.tm
}

// Duration returns the stored relative time.
func (fv *FValue) Duration() time.Duration {
	fv.expect("get duration", storeDuration)
	return fv.dur
}

// Pattern returns the compiled regular expression of an FT_PATTERN value.
func (fv *FValue) Pattern() *regexp.Regexp {
	fv.expect("get pattern", storePattern)
	return fv.re
}

// Len returns the logical byte length of a byte-oriented value.
func (fv *FValue) Len() int {
	fv.live("len")
	s, ok := fv.ftype.ops.(slicer)
	if !ok {
		contractViolation("len", fv.ftype.Enum, "")
	}
	return s.length(fv)
}

// Slice returns length bytes starting at offset. A negative offset counts
// back from the end of the value. The returned slice is a copy.
func (fv *FValue) Slice(offset, length int) ([]byte, error) {
	fv.live("slice")
	s, ok := fv.ftype.ops.(slicer)
	if !ok {
		contractViolation("slice", fv.ftype.Enum, "")
	}
	data := s.bytesOf(fv)
	if offset < 0 {
		offset += len(data)
	}
	if offset < 0 || length < 0 || offset > len(data) || length > len(data)-offset {
		return nil, ErrSliceRange
	}
	return append([]byte{}, data[offset:offset+length]...), nil
}

// Clone returns an independent copy of the value.
func (fv *FValue) Clone() *FValue {
	fv.live("clone")
	c := *fv
	if fv.bytes != nil {
		c.bytes = append([]byte(nil), fv.bytes...)
	}
	return &c
}
