package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/endorses/lcdissect/internal/pkg/proto"
)

const indent = "    "

// Options configures a Printer.
type Options struct {
	Format output.Format
	// Fields limits output to these field abbreviations.
	Fields     []string
	ShowHidden bool
	Styles     Styles
	// Pretty indents JSON output.
	Pretty bool
}

// Printer writes dissected frames to w. It is not safe for concurrent use.
type Printer struct {
	w       *bufio.Writer
	opts    Options
	printed int
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = output.FormatText
	}
	return &Printer{w: bufio.NewWriter(w), opts: opts}
}

// Print writes one frame.
func (p *Printer) Print(number int, tree *proto.Tree) error {
	defer func() { p.printed++ }()

	switch p.opts.Format {
	case output.FormatJSON, output.FormatYAML:
		return p.printRecord(number, tree)
	}
	if len(p.opts.Fields) > 0 {
		values, err := FieldValues(tree, p.opts.Fields)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, FieldRow(p.opts.Fields, values))
		return err
	}
	if p.printed > 0 {
		if err := p.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return p.printTree(tree.Root(), 0)
}

func (p *Printer) printTree(n *proto.Node, depth int) error {
	for _, c := range n.Children() {
		fi := c.Info()
		if fi.Hidden() && !p.opts.ShowHidden {
			continue
		}
		if _, err := io.WriteString(p.w, strings.Repeat(indent, depth)+p.decorate(c)+"\n"); err != nil {
			return err
		}
		if err := p.printTree(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// decorate formats a label for text output. Generated items are bracketed
// unless their label already is.
func (p *Printer) decorate(n *proto.Node) string {
	fi := n.Info()
	label := fi.Label()
	switch {
	case strings.HasPrefix(fi.HField.Abbrev, "_ws."):
		return p.opts.Styles.renderExpert(label)
	case fi.HField.IsProtocol():
		return p.opts.Styles.renderProtocol(fi.HField.Abbrev, label)
	case fi.Generated():
		if !strings.HasPrefix(label, "[") {
			label = "[" + label + "]"
		}
		return p.opts.Styles.renderGenerated(label)
	}
	return label
}

func (p *Printer) printRecord(number int, tree *proto.Tree) error {
	rec := Record{Number: number}
	if len(p.opts.Fields) > 0 {
		values, err := FieldValues(tree, p.opts.Fields)
		if err != nil {
			return err
		}
		rec.Fields = values
	} else {
		rec.Layers = Convert(tree, p.opts.ShowHidden)
	}

	if p.opts.Format == output.FormatYAML {
		data, err := output.MarshalYAML(rec)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(p.w, "---\n"); err != nil {
			return err
		}
		_, err = p.w.Write(data)
		return err
	}

	data, err := output.MarshalJSONPretty(rec, p.opts.Pretty)
	if err != nil {
		return err
	}
	if _, err := p.w.Write(data); err != nil {
		return err
	}
	return p.w.WriteByte('\n')
}

// Flush writes any buffered output.
func (p *Printer) Flush() error {
	return p.w.Flush()
}
