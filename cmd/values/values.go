package values

import (
	"fmt"
	"io"
	"strings"

	"github.com/endorses/lcdissect/internal/pkg/ftypes"
	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/spf13/cobra"
)

// ValuesCmd parses literals as field values and compares them.
var ValuesCmd = &cobra.Command{
	Use:   "values TYPE TEXT [OP TEXT]",
	Short: "Parse, render and compare field values",
	Long: `Parse TEXT as a value of field type TYPE and print its display and
filter renderings. With an operator and a second literal, also print the
result of the comparison.

TYPE is a type name such as FT_UINT16 or ipv4. OP is one of
eq ne gt ge lt le contains matches, or == != > >= < <= ~.

Examples:
  lcdissect values FT_IPV4 10.0.0.1
  lcdissect values uint8 0x1f gt 30
  lcdissect values string 'hello world' matches '^hel'`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 && len(args) != 4 {
			return fmt.Errorf("want TYPE TEXT or TYPE TEXT OP TEXT, got %d arguments", len(args))
		}
		return nil
	},
	RunE: runValues,
}

var (
	allowPartial bool
	valuesFormat string
)

func init() {
	ValuesCmd.Flags().BoolVar(&allowPartial, "partial", false, "accept partial literals, e.g. a 3-byte Ethernet prefix")
	ValuesCmd.Flags().StringVarP(&valuesFormat, "format", "f", "", "output format: text, json or yaml")
}

// Report is the outcome of one values invocation.
type Report struct {
	Type    string `json:"type" yaml:"type"`
	Display string `json:"display" yaml:"display"`
	Filter  string `json:"filter" yaml:"filter"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty"`
	Operand string `json:"operand,omitempty" yaml:"operand,omitempty"`
	Result  *bool  `json:"result,omitempty" yaml:"result,omitempty"`
}

func runValues(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(valuesFormat)
	if err != nil {
		return err
	}
	rep, err := evaluate(args, allowPartial)
	if err != nil {
		return err
	}
	return write(cmd.OutOrStdout(), format, rep)
}

// lookupType accepts "FT_UINT16", "ft_uint16" and "uint16".
func lookupType(name string) (*ftypes.FieldType, error) {
	name = strings.TrimSpace(name)
	if ft, ok := ftypes.LookupName(name); ok {
		return ft, nil
	}
	if len(name) < 3 || !strings.EqualFold(name[:3], "FT_") {
		name = "FT_" + name
	}
	for _, ft := range ftypes.All() {
		if strings.EqualFold(ft.Name, name) {
			return ft, nil
		}
	}
	return nil, fmt.Errorf("unknown field type %q", name)
}

func evaluate(args []string, partial bool) (*Report, error) {
	ft, err := lookupType(args[0])
	if err != nil {
		return nil, err
	}
	v, err := ftypes.ParseFromText(ft.Enum, args[1], partial)
	if err != nil {
		return nil, err
	}
	defer v.Free()

	rep := &Report{
		Type:    ft.Name,
		Display: v.Render(ftypes.RenderDisplay),
		Filter:  v.Render(ftypes.RenderFilter),
	}
	if len(args) == 2 {
		return rep, nil
	}

	op, text := args[2], args[3]
	capability, ok := ftypes.OperatorCapability(op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	if !ft.Can(capability) {
		return nil, fmt.Errorf("%s does not support %s", ft.Name, op)
	}
	operandType := ft.Enum
	if capability == ftypes.CapMatches {
		operandType = ftypes.FTPattern
	}
	operand, err := ftypes.ParseFromText(operandType, text, partial)
	if err != nil {
		return nil, err
	}
	defer operand.Free()

	result := v.Compare(op, operand)
	rep.Op = op
	rep.Operand = operand.Render(ftypes.RenderFilter)
	rep.Result = &result
	return rep, nil
}

func write(w io.Writer, format output.Format, rep *Report) error {
	switch format {
	case output.FormatJSON:
		data, err := output.MarshalJSON(rep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case output.FormatYAML:
		data, err := output.MarshalYAML(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprintf(w, "type:    %s\n", rep.Type)
	fmt.Fprintf(w, "display: %s\n", rep.Display)
	fmt.Fprintf(w, "filter:  %s\n", rep.Filter)
	if rep.Result != nil {
		fmt.Fprintf(w, "%s %s %s: %t\n", rep.Filter, rep.Op, rep.Operand, *rep.Result)
	}
	return nil
}
