package ftypes

import "fmt"

// Enum identifies a wire value category.
type Enum int

const (
	FTNone Enum = iota
	FTProtocol
	FTBoolean
	FTUint8
	FTUint16
	FTUint24
	FTUint32
	FTUint64
	FTInt8
	FTInt16
	FTInt24
	FTInt32
	FTInt64
	FTFloat
	FTDouble
	FTAbsoluteTime
	FTRelativeTime
	FTString
	FTStringz
	FTBytes
	FTEther
	FTIPv4
	FTIPv6
	FTGUID
	FTPattern

	numTypes
)

func (e Enum) String() string {
	if e < 0 || e >= numTypes {
		return fmt.Sprintf("FT_UNKNOWN(%d)", int(e))
	}
	return table[e].Name
}

// Valid reports whether e names a known category.
func (e Enum) Valid() bool {
	return e >= 0 && e < numTypes
}

// Capability names an optional operation of a FieldType.
type Capability int

const (
	CapEq Capability = iota
	CapOrder
	CapContains
	CapMatches
	CapSlice
)

func (c Capability) String() string {
	switch c {
	case CapEq:
		return "eq"
	case CapOrder:
		return "order"
	case CapContains:
		return "contains"
	case CapMatches:
		return "matches"
	case CapSlice:
		return "slice"
	default:
		return "unknown"
	}
}

// storage selects which FValue member holds the value.
type storage int

const (
	storeNone storage = iota
	storeUint
	storeSint
	storeFloat
	storeBytes
	storeString
	storeTime
	storeDuration
	storePattern
)

// family groups categories whose values may be compared with each other.
type family int

const (
	famNone family = iota
	famUint
	famSint
	famFloat
	famString
	famBytes
)

// FieldType describes one wire value category.
type FieldType struct {
	Enum     Enum
	Name     string
	Pretty   string
	WireSize int // 0 when variable

	store  storage
	family family
	ops    valueOps
}

// Can reports whether the category implements the capability.
func (ft *FieldType) Can(c Capability) bool {
	switch c {
	case CapEq:
		_, ok := ft.ops.(equaler)
		return ok
	case CapOrder:
		_, ok := ft.ops.(orderer)
		return ok
	case CapContains:
		_, ok := ft.ops.(container)
		return ok
	case CapMatches:
		_, ok := ft.ops.(matcher)
		return ok
	case CapSlice:
		_, ok := ft.ops.(slicer)
		return ok
	}
	return false
}

// IsInteger reports whether the category is a signed or unsigned integer.
// Booleans are not integers.
func (ft *FieldType) IsInteger() bool {
	return ft.family == famUint || ft.family == famSint
}

// IsUnsigned reports whether the category is an unsigned integer.
func (ft *FieldType) IsUnsigned() bool {
	return ft.family == famUint
}

// IsString reports whether the category holds text.
func (ft *FieldType) IsString() bool {
	return ft.store == storeString
}

// Bits returns the nominal width in bits of integer categories, 0 otherwise.
func (ft *FieldType) Bits() int {
	if !ft.IsInteger() {
		return 0
	}
	return ft.WireSize * 8
}

// valueOps is implemented by every category.
type valueOps interface {
	parse(fv *FValue, s string, allowPartial bool) error
	render(fv *FValue, mode RenderMode) string
}

// Optional capabilities. A category implements exactly those that are
// meaningful for it.
type (
	equaler interface {
		eq(a, b *FValue) bool
	}
	orderer interface {
		cmp(a, b *FValue) int
	}
	container interface {
		contains(a, b *FValue) bool
	}
	matcher interface {
		matches(a *FValue, p *FValue) bool
	}
	slicer interface {
		length(fv *FValue) int
		bytesOf(fv *FValue) []byte
	}
)

var table [numTypes]*FieldType

func register(ft *FieldType) {
	if table[ft.Enum] != nil {
		panic(fmt.Sprintf("ftypes: %s registered twice", ft.Name))
	}
	table[ft.Enum] = ft
}

func init() {
	register(&FieldType{Enum: FTNone, Name: "FT_NONE", Pretty: "Label", store: storeNone, ops: noneOps{}})
	register(&FieldType{Enum: FTProtocol, Name: "FT_PROTOCOL", Pretty: "Protocol", store: storeBytes, family: famBytes, ops: bytesOps{}})
	register(&FieldType{Enum: FTBoolean, Name: "FT_BOOLEAN", Pretty: "Boolean", store: storeUint, ops: boolOps{}})

	register(&FieldType{Enum: FTUint8, Name: "FT_UINT8", Pretty: "Unsigned integer (8 bits)", WireSize: 1, store: storeUint, family: famUint, ops: uintOps{bits: 8}})
	register(&FieldType{Enum: FTUint16, Name: "FT_UINT16", Pretty: "Unsigned integer (16 bits)", WireSize: 2, store: storeUint, family: famUint, ops: uintOps{bits: 16}})
	register(&FieldType{Enum: FTUint24, Name: "FT_UINT24", Pretty: "Unsigned integer (24 bits)", WireSize: 3, store: storeUint, family: famUint, ops: uintOps{bits: 24}})
	register(&FieldType{Enum: FTUint32, Name: "FT_UINT32", Pretty: "Unsigned integer (32 bits)", WireSize: 4, store: storeUint, family: famUint, ops: uintOps{bits: 32}})
	register(&FieldType{Enum: FTUint64, Name: "FT_UINT64", Pretty: "Unsigned integer (64 bits)", WireSize: 8, store: storeUint, family: famUint, ops: uintOps{bits: 64}})

	register(&FieldType{Enum: FTInt8, Name: "FT_INT8", Pretty: "Signed integer (8 bits)", WireSize: 1, store: storeSint, family: famSint, ops: intOps{bits: 8}})
	register(&FieldType{Enum: FTInt16, Name: "FT_INT16", Pretty: "Signed integer (16 bits)", WireSize: 2, store: storeSint, family: famSint, ops: intOps{bits: 16}})
	register(&FieldType{Enum: FTInt24, Name: "FT_INT24", Pretty: "Signed integer (24 bits)", WireSize: 3, store: storeSint, family: famSint, ops: intOps{bits: 24}})
	register(&FieldType{Enum: FTInt32, Name: "FT_INT32", Pretty: "Signed integer (32 bits)", WireSize: 4, store: storeSint, family: famSint, ops: intOps{bits: 32}})
	register(&FieldType{Enum: FTInt64, Name: "FT_INT64", Pretty: "Signed integer (64 bits)", WireSize: 8, store: storeSint, family: famSint, ops: intOps{bits: 64}})

	register(&FieldType{Enum: FTFloat, Name: "FT_FLOAT", Pretty: "Floating point (single-precision)", WireSize: 4, store: storeFloat, family: famFloat, ops: floatOps{bits: 32}})
	register(&FieldType{Enum: FTDouble, Name: "FT_DOUBLE", Pretty: "Floating point (double-precision)", WireSize: 8, store: storeFloat, family: famFloat, ops: floatOps{bits: 64}})

	register(&FieldType{Enum: FTAbsoluteTime, Name: "FT_ABSOLUTE_TIME", Pretty: "Date and time", store: storeTime, ops: absTimeOps{}})
	register(&FieldType{Enum: FTRelativeTime, Name: "FT_RELATIVE_TIME", Pretty: "Time offset", store: storeDuration, ops: relTimeOps{}})

	register(&FieldType{Enum: FTString, Name: "FT_STRING", Pretty: "Character string", store: storeString, family: famString, ops: stringOps{}})
	register(&FieldType{Enum: FTStringz, Name: "FT_STRINGZ", Pretty: "Character string", store: storeString, family: famString, ops: stringOps{}})
	register(&FieldType{Enum: FTBytes, Name: "FT_BYTES", Pretty: "Byte sequence", store: storeBytes, family: famBytes, ops: bytesOps{}})

	register(&FieldType{Enum: FTEther, Name: "FT_ETHER", Pretty: "Ethernet or other MAC address", WireSize: 6, store: storeBytes, ops: etherOps{}})
	register(&FieldType{Enum: FTIPv4, Name: "FT_IPv4", Pretty: "IPv4 address", WireSize: 4, store: storeBytes, ops: ipOps{size: 4}})
	register(&FieldType{Enum: FTIPv6, Name: "FT_IPv6", Pretty: "IPv6 address", WireSize: 16, store: storeBytes, ops: ipOps{size: 16}})
	register(&FieldType{Enum: FTGUID, Name: "FT_GUID", Pretty: "Globally Unique Identifier", WireSize: 16, store: storeBytes, ops: guidOps{}})
	register(&FieldType{Enum: FTPattern, Name: "FT_PATTERN", Pretty: "Compiled regular expression", store: storePattern, ops: patternOps{}})

	for e, ft := range table {
		if ft == nil {
			panic(fmt.Sprintf("ftypes: category %d has no descriptor", e))
		}
	}
}

// Lookup returns the descriptor of a category. An unknown category is a
// programming error.
func Lookup(e Enum) *FieldType {
	if e < 0 || e >= numTypes {
		panic(fmt.Sprintf("ftypes: unknown category %d", int(e)))
	}
	return table[e]
}

// LookupName finds a category by its descriptor name, e.g. "FT_UINT32".
func LookupName(name string) (*FieldType, bool) {
	for _, ft := range table {
		if ft.Name == name {
			return ft, true
		}
	}
	return nil, false
}

// All returns every category in enum order.
func All() []*FieldType {
	out := make([]*FieldType, len(table))
	copy(out, table[:])
	return out
}
