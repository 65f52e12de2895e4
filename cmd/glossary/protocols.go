package glossary

import (
	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List registered protocols",
	Long:  `List every registered protocol as "name<TAB>short name<TAB>abbrev".`,
	RunE:  runProtocols,
}

var protocolsFormat string

func init() {
	protocolsCmd.Flags().StringVarP(&protocolsFormat, "format", "f", "", "output format: text, json or yaml")
}

// Protocol is the serialized form of one protocol line.
type Protocol struct {
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"short_name" yaml:"short_name"`
	Abbrev    string `json:"abbrev" yaml:"abbrev"`
	Fields    int    `json:"fields" yaml:"fields"`
}

func runProtocols(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(protocolsFormat)
	if err != nil {
		return err
	}
	reg, err := registry()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == output.FormatText {
		return reg.DumpProtocols(w)
	}

	protocols := []Protocol{}
	c := reg.Protocols()
	for c.Next() {
		hf := c.Field()
		p := Protocol{Name: hf.Name, ShortName: hf.ShortName, Abbrev: hf.Abbrev}
		for fc := reg.Fields(hf.ID); fc.Next(); {
			p.Fields++
		}
		protocols = append(protocols, p)
	}

	return encode(w, format, protocols)
}
