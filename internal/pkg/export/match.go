package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
)

// ErrCondition reports a frame condition that cannot be evaluated.
var ErrCondition = errors.New("export: invalid condition")

// Condition selects frames by one field. "tcp" tests for presence,
// "udp.port == 53" compares each occurrence with a literal and holds when
// any occurrence matches.
type Condition struct {
	Abbrev string
	Op     string
	Text   string
	cap    ftypes.Capability
}

// ParseCondition reads "abbrev" or "abbrev op literal". The literal is
// everything after the operator.
func ParseCondition(s string) (*Condition, error) {
	parts := strings.Fields(s)
	switch {
	case len(parts) == 1:
		return &Condition{Abbrev: parts[0]}, nil
	case len(parts) < 3:
		return nil, fmt.Errorf("%w: %q: want \"field\" or \"field op value\"", ErrCondition, s)
	}
	capability, ok := ftypes.OperatorCapability(parts[1])
	if !ok {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrCondition, parts[1])
	}
	return &Condition{
		Abbrev: parts[0],
		Op:     parts[1],
		Text:   strings.Join(parts[2:], " "),
		cap:    capability,
	}, nil
}

func (c *Condition) String() string {
	if c.Op == "" {
		return c.Abbrev
	}
	return c.Abbrev + " " + c.Op + " " + c.Text
}

// Match evaluates the condition against tree. Hidden items take part.
func (c *Condition) Match(tree *proto.Tree) (bool, error) {
	fis, err := tree.FindFieldsByAbbrev(c.Abbrev)
	if err != nil {
		return false, err
	}
	if c.Op == "" {
		return len(fis) > 0, nil
	}

	literals := make(map[ftypes.Enum]*ftypes.FValue)
	defer func() {
		for _, v := range literals {
			v.Free()
		}
	}()

	for _, fi := range fis {
		ft := fi.Value.Type()
		if !ft.Can(c.cap) {
			return false, fmt.Errorf("%w: %s does not support %s", ErrCondition, ft.Name, c.Op)
		}
		want := ft.Enum
		if c.cap == ftypes.CapMatches {
			want = ftypes.FTPattern
		}
		lit, ok := literals[want]
		if !ok {
			lit, err = ftypes.ParseFromText(want, c.Text, false)
			if err != nil {
				return false, fmt.Errorf("%w: %s: %w", ErrCondition, c.Abbrev, err)
			}
			literals[want] = lit
		}
		if fi.Value.Compare(c.Op, lit) {
			return true, nil
		}
	}
	return false, nil
}
