package ftypes

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

type noneOps struct{}

func (noneOps) parse(*FValue, string, bool) error { return ErrUnsupported }
func (noneOps) render(*FValue, RenderMode) string { return "" }

type boolOps struct{}

func (boolOps) parse(fv *FValue, s string, _ bool) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		fv.uinteger = 1
		return nil
	case "false":
		fv.uinteger = 0
		return nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return ErrSyntax
	}
	if v != 0 {
		fv.uinteger = 1
	} else {
		fv.uinteger = 0
	}
	return nil
}

func (boolOps) render(fv *FValue, mode RenderMode) string {
	if mode == RenderFilter {
		if fv.uinteger != 0 {
			return "1"
		}
		return "0"
	}
	if fv.uinteger != 0 {
		return "True"
	}
	return "False"
}

func (boolOps) eq(a, b *FValue) bool {
	return (a.uinteger != 0) == (b.uinteger != 0)
}

type uintOps struct {
	bits int
}

func (o uintOps) max() uint64 {
	if o.bits >= 64 {
		return math.MaxUint64
	}
	return 1<<o.bits - 1
}

func (o uintOps) parse(fv *FValue, s string, _ bool) error {
	s = strings.TrimSpace(s)
	if r, ok := charLiteral(s); ok {
		if uint64(r) > o.max() {
			return ErrOverflow
		}
		fv.uinteger = uint64(r)
		return nil
	}
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return ErrSyntax
		}
		if err == nil && v == 0 {
			fv.uinteger = 0
			return nil
		}
		return ErrUnderflow
	}
	// ParseUint takes no sign; a second sign after the '+' stays a syntax error.
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return ErrOverflow
		}
		return ErrSyntax
	}
	if v > o.max() {
		return ErrOverflow
	}
	fv.uinteger = v
	return nil
}

func (uintOps) render(fv *FValue, _ RenderMode) string {
	return strconv.FormatUint(fv.uinteger, 10)
}

func (uintOps) eq(a, b *FValue) bool { return a.uinteger == b.uinteger }
func (uintOps) cmp(a, b *FValue) int { return cmp3(a.uinteger, b.uinteger) }

type intOps struct {
	bits int
}

func (o intOps) bounds() (int64, int64) {
	if o.bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -(1 << (o.bits - 1)), 1<<(o.bits-1) - 1
}

func (o intOps) parse(fv *FValue, s string, _ bool) error {
	s = strings.TrimSpace(s)
	lo, hi := o.bounds()
	if r, ok := charLiteral(s); ok {
		if int64(r) > hi {
			return ErrOverflow
		}
		fv.sinteger = int64(r)
		return nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(s, "-") {
				return ErrUnderflow
			}
			return ErrOverflow
		}
		return ErrSyntax
	}
	if v < lo {
		return ErrUnderflow
	}
	if v > hi {
		return ErrOverflow
	}
	fv.sinteger = v
	return nil
}

func (intOps) render(fv *FValue, _ RenderMode) string {
	return strconv.FormatInt(fv.sinteger, 10)
}

func (intOps) eq(a, b *FValue) bool { return a.sinteger == b.sinteger }
func (intOps) cmp(a, b *FValue) int { return cmp3(a.sinteger, b.sinteger) }

type floatOps struct {
	bits int
}

func (o floatOps) parse(fv *FValue, s string, _ bool) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), o.bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if math.IsInf(v, 0) {
				return ErrOverflow
			}
			return ErrUnderflow
		}
		return ErrSyntax
	}
	fv.floating = v
	return nil
}

func (o floatOps) render(fv *FValue, _ RenderMode) string {
	return strconv.FormatFloat(fv.floating, 'g', -1, o.bits)
}

func (floatOps) eq(a, b *FValue) bool { return cmpFloat(a.floating, b.floating) == 0 }
func (floatOps) cmp(a, b *FValue) int { return cmpFloat(a.floating, b.floating) }

// cmpFloat orders NaN below every other value and equal to itself, so eq
// and the ordering operators agree on it.
func cmpFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return cmp3(a, b)
}

// charLiteral reads a single quoted character such as 'A' or '\n'.
func charLiteral(s string) (rune, bool) {
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, false
	}
	r, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
	if err != nil || tail != "" {
		return 0, false
	}
	return r, true
}
