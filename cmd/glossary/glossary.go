package glossary

import (
	"io"

	"github.com/endorses/lcdissect/internal/pkg/dissect"
	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/spf13/cobra"
)

// GlossaryCmd is the base command for listing registered protocols and fields.
var GlossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "List registered protocols and fields",
	Long: `List the protocols and fields the dissector registers.

Subcommands:
  fields     - One line per protocol and field
  protocols  - One line per protocol

Examples:
  lcdissect glossary fields
  lcdissect glossary fields --match 'tcp.flags.*'
  lcdissect glossary protocols --format json`,
	// No Run function - requires a subcommand
}

func init() {
	GlossaryCmd.AddCommand(fieldsCmd)
	GlossaryCmd.AddCommand(protocolsCmd)
}

// registry returns a closed registry holding every built-in dissector.
func registry() (*proto.Registry, error) {
	eng, err := dissect.New(proto.NewRegistry(), dissect.Config{})
	if err != nil {
		return nil, err
	}
	return eng.Registry(), nil
}

func encode(w io.Writer, format output.Format, v any) error {
	var (
		data []byte
		err  error
	)
	if format == output.FormatYAML {
		data, err = output.MarshalYAML(v)
	} else {
		data, err = output.MarshalJSON(v)
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
