package ftypes

// RenderMode selects the representation produced by Render.
type RenderMode int

const (
	// RenderDisplay is the human readable form used in tree labels.
	RenderDisplay RenderMode = iota

	// RenderFilter is a form that ParseFromText reads back to an equal
	// value. Text and timestamps are quoted.
	RenderFilter
)

// Render returns the textual representation of the value.
func (fv *FValue) Render(mode RenderMode) string {
	fv.live("render")
	return fv.ftype.ops.render(fv, mode)
}

// ParseFromText builds a value of the category from text, as found in a
// filter expression. allowPartial accepts a prefix of fixed-size byte
// categories, which is what slice comparisons need.
func ParseFromText(e Enum, text string, allowPartial bool) (*FValue, error) {
	fv := New(e)
	if err := fv.ftype.ops.parse(fv, text, allowPartial); err != nil {
		fv.Free()
		return nil, parseFailure(e, text, err)
	}
	return fv, nil
}

// MustParse is like ParseFromText but panics on error. Intended for
// constants in tests and decoder init code.
func MustParse(e Enum, text string) *FValue {
	fv, err := ParseFromText(e, text, false)
	if err != nil {
		panic(err)
	}
	return fv
}
