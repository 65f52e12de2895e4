package ftypes

// compatible reports whether a and b may be compared. Values of the same
// category always may; integer, float, text and byte categories also
// compare within their family.
func compatible(a, b *FValue) bool {
	if a.ftype == b.ftype {
		return true
	}
	return a.ftype.family != famNone && a.ftype.family == b.ftype.family
}

func (a *FValue) checkPair(op string, b *FValue) {
	a.live(op)
	b.live(op)
	if !compatible(a, b) {
		contractViolation(op, a.ftype.Enum, "operand is "+b.ftype.Name)
	}
}

func (a *FValue) equal(op string, b *FValue) bool {
	a.checkPair(op, b)
	e, ok := a.ftype.ops.(equaler)
	if !ok {
		contractViolation(op, a.ftype.Enum, "")
	}
	return e.eq(a, b)
}

func (a *FValue) order(op string, b *FValue) int {
	a.checkPair(op, b)
	o, ok := a.ftype.ops.(orderer)
	if !ok {
		contractViolation(op, a.ftype.Enum, "")
	}
	return o.cmp(a, b)
}

// Eq reports a == b.
func (a *FValue) Eq(b *FValue) bool { return a.equal("eq", b) }

// Ne reports a != b.
func (a *FValue) Ne(b *FValue) bool { return !a.equal("ne", b) }

// Gt reports a > b.
func (a *FValue) Gt(b *FValue) bool { return a.order("gt", b) > 0 }

// Ge reports a >= b.
func (a *FValue) Ge(b *FValue) bool { return a.order("ge", b) >= 0 }

// Lt reports a < b.
func (a *FValue) Lt(b *FValue) bool { return a.order("lt", b) < 0 }

// Le reports a <= b.
func (a *FValue) Le(b *FValue) bool { return a.order("le", b) <= 0 }

// Contains reports whether b occurs inside a.
func (a *FValue) Contains(b *FValue) bool {
	a.checkPair("contains", b)
	c, ok := a.ftype.ops.(container)
	if !ok {
		contractViolation("contains", a.ftype.Enum, "")
	}
	return c.contains(a, b)
}

// Matches reports whether a matches the compiled pattern p, which must be
// an FT_PATTERN value.
func (a *FValue) Matches(p *FValue) bool {
	a.live("matches")
	p.live("matches")
	m, ok := a.ftype.ops.(matcher)
	if !ok {
		contractViolation("matches", a.ftype.Enum, "")
	}
	if p.ftype.Enum != FTPattern {
		contractViolation("matches", a.ftype.Enum, "operand is "+p.ftype.Name)
	}
	return m.matches(a, p)
}

// Compare applies the named comparison operator. It is a convenience for
// callers that carry the operator as data; op is one of eq, ne, gt, ge,
// lt, le, contains and matches.
func (a *FValue) Compare(op string, b *FValue) bool {
	switch op {
	case "eq", "==":
		return a.Eq(b)
	case "ne", "!=":
		return a.Ne(b)
	case "gt", ">":
		return a.Gt(b)
	case "ge", ">=":
		return a.Ge(b)
	case "lt", "<":
		return a.Lt(b)
	case "le", "<=":
		return a.Le(b)
	case "contains":
		return a.Contains(b)
	case "matches", "~":
		return a.Matches(b)
	}
	contractViolation(op, a.ftype.Enum, "unknown operator")
	return false
}

// OperatorCapability maps an operator name accepted by Compare to the
// capability it requires.
func OperatorCapability(op string) (Capability, bool) {
	switch op {
	case "eq", "==", "ne", "!=":
		return CapEq, true
	case "gt", ">", "ge", ">=", "lt", "<", "le", "<=":
		return CapOrder, true
	case "contains":
		return CapContains, true
	case "matches", "~":
		return CapMatches, true
	}
	return 0, false
}

func cmp3[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
