// Package export renders dissected frames as indented text, JSON or YAML.
package export

import (
	"strings"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/proto"
)

// Node is the serialized form of one tree item.
type Node struct {
	Abbrev    string `json:"abbrev" yaml:"abbrev"`
	Label     string `json:"label" yaml:"label"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Offset    int    `json:"offset" yaml:"offset"`
	Length    int    `json:"length" yaml:"length"`
	Hidden    bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Generated bool   `json:"generated,omitempty" yaml:"generated,omitempty"`
	Children  []Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Record is the serialized form of one frame.
type Record struct {
	Number int                 `json:"number" yaml:"number"`
	Layers []Node              `json:"layers,omitempty" yaml:"layers,omitempty"`
	Fields map[string][]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Convert copies the items of tree into Nodes. Hidden items are skipped
// unless showHidden is set.
func Convert(tree *proto.Tree, showHidden bool) []Node {
	return convertChildren(tree.Root(), showHidden)
}

func convertChildren(n *proto.Node, showHidden bool) []Node {
	var out []Node
	for _, c := range n.Children() {
		fi := c.Info()
		if fi.Hidden() && !showHidden {
			continue
		}
		out = append(out, Node{
			Abbrev:    fi.HField.Abbrev,
			Label:     fi.Label(),
			Value:     filterValue(fi),
			Offset:    fi.AbsoluteStart(),
			Length:    fi.Length,
			Hidden:    fi.Hidden(),
			Generated: fi.Generated(),
			Children:  convertChildren(c, showHidden),
		})
	}
	return out
}

// filterValue renders an item's value the way a display filter would
// spell it. Protocol and label items carry no value.
func filterValue(fi *proto.FieldInfo) string {
	switch fi.HField.Type {
	case ftypes.FTNone, ftypes.FTProtocol:
		return ""
	}
	return fi.Value.Render(ftypes.RenderFilter)
}

// FieldValues returns, for each abbreviation, the filter rendering of
// every occurrence in tree, in tree order. Hidden items are included.
func FieldValues(tree *proto.Tree, abbrevs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(abbrevs))
	for _, abbrev := range abbrevs {
		fis, err := tree.FindFieldsByAbbrev(abbrev)
		if err != nil {
			return nil, err
		}
		vals := make([]string, 0, len(fis))
		for _, fi := range fis {
			vals = append(vals, filterValue(fi))
		}
		out[abbrev] = vals
	}
	return out, nil
}

// FieldRow joins field values into one tab-separated line; repeated
// occurrences of a field are separated by commas.
func FieldRow(abbrevs []string, values map[string][]string) string {
	cols := make([]string, len(abbrevs))
	for i, abbrev := range abbrevs {
		cols[i] = strings.Join(values[abbrev], ",")
	}
	return strings.Join(cols, "\t")
}
