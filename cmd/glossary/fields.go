package glossary

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List protocols and fields",
	Long: `List every registered protocol and field in registration order.

Text output has one tab-separated line per entry:

  P  name  abbrev  type
  F  name  abbrev  type  parent

--match keeps entries whose abbreviation matches one of the glob
patterns. "*" stops at dots, "**" does not.`,
	RunE: runFields,
}

var (
	matchPatterns []string
	fieldsFormat  string
)

func init() {
	fieldsCmd.Flags().StringSliceVarP(&matchPatterns, "match", "m", nil, "abbreviation glob patterns (repeatable)")
	fieldsCmd.Flags().StringVarP(&fieldsFormat, "format", "f", "", "output format: text, json or yaml")
}

// Entry is the serialized form of one glossary line.
type Entry struct {
	Kind   string `json:"kind" yaml:"kind"`
	Name   string `json:"name" yaml:"name"`
	Abbrev string `json:"abbrev" yaml:"abbrev"`
	Type   string `json:"type" yaml:"type"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Blurb  string `json:"blurb,omitempty" yaml:"blurb,omitempty"`
}

func runFields(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(fieldsFormat)
	if err != nil {
		return err
	}
	keep, err := matcher(matchPatterns)
	if err != nil {
		return err
	}
	reg, err := registry()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == output.FormatText {
		return reg.DumpGlossaryFiltered(w, keep)
	}

	entries := collect(reg, keep)
	return encode(w, format, entries)
}

// matcher compiles patterns into a descriptor predicate. No patterns keep
// everything.
func matcher(patterns []string) (func(*proto.HeaderField) bool, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return func(hf *proto.HeaderField) bool {
		if len(globs) == 0 {
			return true
		}
		for _, g := range globs {
			if g.Match(hf.Abbrev) {
				return true
			}
		}
		return false
	}, nil
}

func collect(reg *proto.Registry, keep func(*proto.HeaderField) bool) []Entry {
	entries := []Entry{}
	c := reg.All()
	for c.Next() {
		hf := c.Field()
		if !keep(hf) {
			continue
		}
		e := Entry{
			Kind:   proto.GlossaryField,
			Name:   hf.Name,
			Abbrev: hf.Abbrev,
			Type:   hf.Type.String(),
			Blurb:  hf.Blurb,
		}
		if hf.IsProtocol() {
			e.Kind = proto.GlossaryProtocol
		} else {
			e.Parent = reg.LookupByID(hf.Parent).Abbrev
		}
		entries = append(entries, e)
	}
	return entries
}
