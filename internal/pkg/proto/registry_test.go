package proto

import (
	"errors"
	"sync"
	"testing"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertPanicsWith runs fn and returns the typed value it panicked with.
func assertPanicsWith[T error](t *testing.T, fn func()) T {
	t.Helper()
	var got T
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.True(t, errors.As(err, &got), "panic %v has unexpected type", err)
		}()
		fn()
	}()
	return got
}

func TestRegistryProtocolRoot(t *testing.T) {
	r := NewRegistry()

	id := r.Register(HeaderField{Name: "TEST", Abbrev: "test", Type: ftypes.FTNone}, NoParent)

	assert.Equal(t, FieldID(0), id)
	assert.Equal(t, NoParent, r.ParentOf(id))
	assert.True(t, r.IsProtocolRoot(id))
	assert.Equal(t, id, r.ProtocolOf(id))
}

func TestRegistryBooleanFlag(t *testing.T) {
	r := NewRegistry()
	test := r.Register(HeaderField{Name: "TEST", Abbrev: "test", Type: ftypes.FTNone}, NoParent)

	flag := r.Register(HeaderField{
		Name:    "test.flag",
		Abbrev:  "test.flag",
		Type:    ftypes.FTBoolean,
		Bitmask: 0x01,
	}, test)

	assert.Equal(t, FieldID(1), flag)
	assert.Equal(t, test, r.ParentOf(flag))
	assert.False(t, r.IsProtocolRoot(flag))
	assert.Equal(t, test, r.ProtocolOf(flag))
	assert.Equal(t, 0, r.LookupByID(flag).Shift())
}

func TestRegistryIDsAreDense(t *testing.T) {
	r := NewRegistry()
	eth := r.RegisterProtocol("Ethernet II", "Ethernet", "eth")

	var dst, src, typ FieldID
	r.RegisterFields(eth, []FieldRegistration{
		{ID: &dst, Field: HeaderField{Name: "Destination", Abbrev: "eth.dst", Type: ftypes.FTEther}},
		{ID: &src, Field: HeaderField{Name: "Source", Abbrev: "eth.src", Type: ftypes.FTEther}},
		{ID: &typ, Field: HeaderField{Name: "Type", Abbrev: "eth.type", Type: ftypes.FTUint16, Display: BaseHex}},
	})

	assert.Equal(t, []FieldID{1, 2, 3}, []FieldID{dst, src, typ})
	assert.Equal(t, 4, r.Len())
	for id := FieldID(0); int(id) < r.Len(); id++ {
		assert.Equal(t, id, r.LookupByID(id).ID)
	}
}

func TestRegistryNameRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	c := r.All()
	count := 0
	for c.Next() {
		hf := c.Field()
		head, err := r.LookupByName(hf.Abbrev)
		require.NoError(t, err)
		assert.Equal(t, hf.Abbrev, r.LookupByID(head.ID).Abbrev)
		count++
	}
	assert.Equal(t, r.Len(), count)
}

func TestRegistrySameNameChain(t *testing.T) {
	r := NewRegistry()
	first := r.RegisterProtocol("First", "FIRST", "first")
	second := r.RegisterProtocol("Second", "SECOND", "second")

	older := r.Register(HeaderField{Name: "Address", Abbrev: "addr", Type: ftypes.FTIPv4}, first)
	newer := r.Register(HeaderField{Name: "Address", Abbrev: "addr", Type: ftypes.FTIPv6}, second)

	head, err := r.LookupByName("addr")
	require.NoError(t, err)
	assert.Equal(t, newer, head.ID)
	assert.Equal(t, second, head.Parent)

	next := head.SameNameNext()
	require.NotNil(t, next)
	assert.Equal(t, older, next.ID)
	assert.Equal(t, first, next.Parent)
	assert.Nil(t, next.SameNameNext())

	var visited []FieldID
	for hf := head; hf != nil; hf = hf.SameNameNext() {
		visited = append(visited, hf.ID)
	}
	assert.Equal(t, []FieldID{newer, older}, visited)
}

func TestRegistryLookupByNameNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.LookupByName("nope")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestRegistryLookupByIDOutOfRange(t *testing.T) {
	r := NewRegistry()
	r.RegisterProtocol("TEST", "TEST", "test")

	for _, id := range []FieldID{-1, 1, 100} {
		err := assertPanicsWith[*ContractError](t, func() { r.LookupByID(id) })
		assert.Equal(t, "lookup", err.Op)
	}
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		field  HeaderField
		parent func(p FieldID) FieldID
	}{
		{
			name:  "empty name",
			field: HeaderField{Abbrev: "x.a", Type: ftypes.FTUint8},
		},
		{
			name:  "bad abbreviation",
			field: HeaderField{Name: "A", Abbrev: "x a", Type: ftypes.FTUint8},
		},
		{
			name:  "unknown category",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.Enum(99)},
		},
		{
			name:  "pattern field",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTPattern},
		},
		{
			name:  "bitmask on string",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTString, Bitmask: 0x0f},
		},
		{
			name:  "bitmask wider than category",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8, Bitmask: 0x100},
		},
		{
			name:  "value strings on bytes",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTBytes, Strings: map[uint64]string{1: "one"}},
		},
		{
			name:  "display base on ipv4",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTIPv4, Display: BaseHex},
		},
		{
			name:  "display base on boolean",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTBoolean, Display: BaseDec},
		},
		{
			name:  "odd boolean width",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTBoolean, BitWidth: 12},
		},
		{
			name:  "boolean mask beyond width",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTBoolean, BitWidth: 8, Bitmask: 0x100},
		},
		{
			name:  "bit width on integer",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8, BitWidth: 8},
		},
		{
			name:  "unknown base",
			field: HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8, Display: Base(42)},
		},
		{
			name:   "root with value category",
			field:  HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8},
			parent: func(FieldID) FieldID { return NoParent },
		},
		{
			name:   "unknown parent",
			field:  HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8},
			parent: func(FieldID) FieldID { return 42 },
		},
		{
			name:  "short name on field",
			field: HeaderField{Name: "A", Abbrev: "x.a", ShortName: "A", Type: ftypes.FTUint8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			p := r.RegisterProtocol("X", "X", "x")
			parent := p
			if tt.parent != nil {
				parent = tt.parent(p)
			}
			err := assertPanicsWith[*RegistrationError](t, func() { r.Register(tt.field, parent) })
			assert.Equal(t, tt.field.Abbrev, err.Abbrev)
			assert.Equal(t, 1, r.Len(), "rejected registration must not be stored")
		})
	}
}

func TestRegistryFieldUnderField(t *testing.T) {
	r := NewRegistry()
	p := r.RegisterProtocol("X", "X", "x")
	f := r.Register(HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8}, p)

	err := assertPanicsWith[*RegistrationError](t, func() {
		r.Register(HeaderField{Name: "B", Abbrev: "x.b", Type: ftypes.FTUint8}, f)
	})
	assert.Contains(t, err.Reason, "not a protocol")
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	p := r.RegisterProtocol("X", "X", "x")
	r.Close()
	r.Close()

	assert.True(t, r.Closed())
	assertPanicsWith[*RegistrationError](t, func() {
		r.Register(HeaderField{Name: "A", Abbrev: "x.a", Type: ftypes.FTUint8}, p)
	})
	var kind SubtreeKind
	assertPanicsWith[*RegistrationError](t, func() { r.RegisterSubtrees(&kind) })
}

func TestRegistrySubtrees(t *testing.T) {
	r := NewRegistry()
	var a, b, c SubtreeKind
	r.RegisterSubtrees(&a, &b)
	r.RegisterSubtrees(&c)

	assert.Equal(t, []SubtreeKind{1, 2, 3}, []SubtreeKind{a, b, c})
}

func TestRegistryCursors(t *testing.T) {
	r := newTestRegistry(t)

	var protocols []string
	pc := r.Protocols()
	for pc.Next() {
		protocols = append(protocols, pc.Field().Abbrev)
	}
	assert.Equal(t, []string{"frame", "udp"}, protocols)
	assert.False(t, pc.Next(), "cursor must not restart")
	assert.Nil(t, pc.Field())

	udp, err := r.LookupByName("udp")
	require.NoError(t, err)
	var fields []string
	fc := r.Fields(udp.ID)
	for fc.Next() {
		fields = append(fields, fc.Field().Abbrev)
	}
	assert.Equal(t, []string{"udp.srcport", "udp.dstport", "udp.port", "udp.length"}, fields)
}

func TestRegistryConcurrentReadsAfterClose(t *testing.T) {
	r := newTestRegistry(t)
	r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hf, err := r.LookupByName("udp.port")
				if err != nil {
					t.Error(err)
					return
				}
				_ = r.LookupByID(hf.ID)
				_ = r.ParentOf(hf.ID)
			}
		}()
	}
	wg.Wait()
}

func TestBaseString(t *testing.T) {
	assert.Equal(t, "BASE_HEX", BaseHex.String())
	assert.Equal(t, "Base(42)", Base(42).String())
}

// newTestRegistry registers a small frame/udp field set.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	frame := r.RegisterProtocol("Frame", "Frame", "frame")
	r.RegisterFields(frame, []FieldRegistration{
		{Field: HeaderField{Name: "Frame length", Abbrev: "frame.len", Type: ftypes.FTUint32, Display: BaseDec}},
	})
	udp := r.RegisterProtocol("User Datagram Protocol", "UDP", "udp")
	r.RegisterFields(udp, []FieldRegistration{
		{Field: HeaderField{Name: "Source Port", Abbrev: "udp.srcport", Type: ftypes.FTUint16, Display: BaseDec}},
		{Field: HeaderField{Name: "Destination Port", Abbrev: "udp.dstport", Type: ftypes.FTUint16, Display: BaseDec}},
		{Field: HeaderField{Name: "Source or Destination Port", Abbrev: "udp.port", Type: ftypes.FTUint16, Display: BaseDec}},
		{Field: HeaderField{Name: "Length", Abbrev: "udp.length", Type: ftypes.FTUint16, Display: BaseDec}},
	})
	return r
}
