package proto

import (
	"bufio"
	"fmt"
	"io"
)

// Glossary line kinds.
const (
	GlossaryProtocol = "P"
	GlossaryField    = "F"
)

// DumpGlossary writes one tab-separated line per descriptor in ID order:
//
//	kind	name	abbrev	category	parentAbbrev
//
// kind is "P" for protocols and "F" for fields; parentAbbrev is empty for
// protocols.
func (r *Registry) DumpGlossary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	c := r.All()
	for c.Next() {
		if err := r.writeGlossaryLine(bw, c.Field()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpGlossaryFiltered is DumpGlossary restricted to descriptors for which
// keep returns true.
func (r *Registry) DumpGlossaryFiltered(w io.Writer, keep func(*HeaderField) bool) error {
	bw := bufio.NewWriter(w)
	c := r.All()
	for c.Next() {
		if !keep(c.Field()) {
			continue
		}
		if err := r.writeGlossaryLine(bw, c.Field()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpProtocols writes "name\tshortName\tabbrev" for every protocol.
func (r *Registry) DumpProtocols(w io.Writer) error {
	bw := bufio.NewWriter(w)
	c := r.Protocols()
	for c.Next() {
		hf := c.Field()
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", hf.Name, hf.ShortName, hf.Abbrev); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (r *Registry) writeGlossaryLine(w io.Writer, hf *HeaderField) error {
	kind, parent := GlossaryProtocol, ""
	if !hf.IsProtocol() {
		kind = GlossaryField
		parent = r.LookupByID(hf.Parent).Abbrev
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", kind, hf.Name, hf.Abbrev, hf.Type, parent)
	return err
}
