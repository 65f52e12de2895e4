package ftypes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	displayTimeLayout = "Jan _2, 2006 15:04:05.000000000 MST"
	filterTimeLayout  = "2006-01-02T15:04:05.000000000Z07:00"
)

var absTimeLayouts = []string{
	time.RFC3339Nano,
	displayTimeLayout,
	"Jan _2, 2006 15:04:05.999999999",
	"Jan _2, 2006 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type absTimeOps struct{}

func (absTimeOps) parse(fv *FValue, s string, _ bool) error {
	s = unquoteIfQuoted(strings.TrimSpace(s))
	for _, layout := range absTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			fv.tm = t
			return nil
		}
	}
	// Seconds since the epoch, with an optional fraction.
	secs, nsecs, err := parseSecondsFraction(s)
	if err != nil {
		return err
	}
	fv.tm = time.Unix(secs, nsecs).UTC()
	return nil
}

func (absTimeOps) render(fv *FValue, mode RenderMode) string {
	if mode == RenderFilter {
		return strconv.Quote(fv.tm.UTC().Format(filterTimeLayout))
	}
	return fv.tm.UTC().Format(displayTimeLayout)
}

func (absTimeOps) eq(a, b *FValue) bool { return a.tm.Equal(b.tm) }
func (absTimeOps) cmp(a, b *FValue) int { return a.tm.Compare(b.tm) }

type relTimeOps struct{}

func (relTimeOps) parse(fv *FValue, s string, _ bool) error {
	s = unquoteIfQuoted(strings.TrimSpace(s))
	if d, err := time.ParseDuration(s); err == nil {
		fv.dur = d
		return nil
	}
	secs, nsecs, err := parseSecondsFraction(s)
	if err != nil {
		return err
	}
	const sec = int64(time.Second)
	if secs > math.MaxInt64/sec || (secs == math.MaxInt64/sec && nsecs > math.MaxInt64%sec) {
		return ErrOverflow
	}
	if secs < math.MinInt64/sec || (secs == math.MinInt64/sec && nsecs < math.MinInt64%sec) {
		return ErrUnderflow
	}
	fv.dur = time.Duration(secs)*time.Second + time.Duration(nsecs)
	return nil
}

func (relTimeOps) render(fv *FValue, mode RenderMode) string {
	d := fv.dur
	sign := ""
	u := uint64(d)
	if d < 0 {
		sign = "-"
		// Negate in unsigned space so the most negative duration survives.
		u = uint64(-(d + 1)) + 1
	}
	s := fmt.Sprintf("%s%d.%09d", sign, u/uint64(time.Second), u%uint64(time.Second))
	if mode == RenderDisplay {
		return s + " seconds"
	}
	return s
}

func (relTimeOps) eq(a, b *FValue) bool { return a.dur == b.dur }
func (relTimeOps) cmp(a, b *FValue) int { return cmp3(int64(a.dur), int64(b.dur)) }

// parseSecondsFraction reads "[-]secs[.fraction]" with up to nanosecond
// precision. A negative value yields a negative nanosecond part as well.
func parseSecondsFraction(s string) (int64, int64, error) {
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" && frac == "" {
		return 0, 0, ErrSyntax
	}
	var secs int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, 0, ErrOverflow
			}
			return 0, 0, ErrSyntax
		}
		secs = v
	}
	var nsecs int64
	if frac != "" {
		if len(frac) > 9 {
			return 0, 0, ErrSyntax
		}
		v, err := strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return 0, 0, ErrSyntax
		}
		nsecs = int64(v)
	}
	if neg {
		return -secs, -nsecs, nil
	}
	return secs, nsecs, nil
}

func unquoteIfQuoted(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
