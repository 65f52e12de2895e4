package proto

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/tvb"
)

// ItemFlags control how consumers present an item.
type ItemFlags uint8

const (
	// FlagHidden items are filterable but not shown.
	FlagHidden ItemFlags = 1 << iota
	// FlagGenerated items are derived rather than read from the frame.
	FlagGenerated
	// FlagCrossRef items refer to another frame or resource.
	FlagCrossRef
)

// FieldInfo is one decoded occurrence of a field.
type FieldInfo struct {
	HField      *HeaderField
	Value       *ftypes.FValue
	Start       int
	Length      int
	SubtreeType SubtreeKind
	Flags       ItemFlags
	Encoding    Encoding

	// DataSource is the buffer Start and Length refer to. The decoder
	// owns it; it may be nil for generated items without a range.
	DataSource *tvb.Buffer

	label    string
	hasLabel bool
}

// ID returns the item's descriptor ID.
func (fi *FieldInfo) ID() FieldID {
	return fi.HField.ID
}

// Hidden reports whether FlagHidden is set.
func (fi *FieldInfo) Hidden() bool {
	return fi.Flags&FlagHidden != 0
}

// Generated reports whether FlagGenerated is set.
func (fi *FieldInfo) Generated() bool {
	return fi.Flags&FlagGenerated != 0
}

// CrossRef reports whether FlagCrossRef is set.
func (fi *FieldInfo) CrossRef() bool {
	return fi.Flags&FlagCrossRef != 0
}

// AbsoluteStart returns Start relative to the top-level frame buffer.
func (fi *FieldInfo) AbsoluteStart() int {
	if fi.DataSource == nil {
		return fi.Start
	}
	return fi.DataSource.Base() + fi.Start
}

// Label returns the item's text: either text set by the decoder, or the
// descriptor name followed by the rendered value.
func (fi *FieldInfo) Label() string {
	if !fi.hasLabel {
		fi.label = fi.defaultLabel()
		fi.hasLabel = true
	}
	return fi.label
}

// DisplayValue renders the value as shown in labels, applying the
// descriptor's base and value strings.
func (fi *FieldInfo) DisplayValue() string {
	hf, v := fi.HField, fi.Value
	ft := v.Type()
	switch {
	case hf.Type == ftypes.FTBoolean:
		if s, ok := hf.Strings[v.Uinteger()]; ok {
			return s
		}
		return v.Render(ftypes.RenderDisplay)
	case ft.IsUnsigned():
		u := v.Uinteger()
		num := hf.formatUint(u)
		if s, ok := hf.Strings[u]; ok {
			return fmt.Sprintf("%s (%s)", s, num)
		}
		return num
	case ft.IsInteger():
		i := v.Sinteger()
		num := hf.formatInt(i)
		if s, ok := hf.Strings[uint64(i)]; ok {
			return fmt.Sprintf("%s (%s)", s, num)
		}
		return num
	default:
		return v.Render(ftypes.RenderDisplay)
	}
}

func (fi *FieldInfo) defaultLabel() string {
	switch fi.HField.Type {
	case ftypes.FTNone, ftypes.FTProtocol:
		return fi.HField.Name
	}
	return fi.HField.Name + ": " + fi.DisplayValue()
}

// Raw returns the captured bytes the item covers. Items that run past the
// captured data yield a *tvb.BoundsError.
func (fi *FieldInfo) Raw() ([]byte, error) {
	if fi.DataSource == nil || fi.Length == 0 {
		return nil, nil
	}
	return fi.DataSource.Bytes(fi.Start, fi.Length)
}

// Slice returns a copy of length bytes of the item's wire data starting at
// offset. A negative offset counts from the end.
func (fi *FieldInfo) Slice(offset, length int) ([]byte, error) {
	raw, err := fi.Raw()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset += len(raw)
	}
	if offset < 0 || length < 0 || offset > len(raw) || length > len(raw)-offset {
		return nil, fmt.Errorf("%w: offset %d length %d of %d bytes", ftypes.ErrSliceRange, offset, length, len(raw))
	}
	return append([]byte{}, raw[offset:offset+length]...), nil
}
