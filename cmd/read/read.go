package read

import (
	"fmt"

	"github.com/endorses/lcdissect/internal/pkg/cmdutil"
	"github.com/endorses/lcdissect/internal/pkg/constants"
	"github.com/endorses/lcdissect/internal/pkg/export"
	"github.com/endorses/lcdissect/internal/pkg/logger"
	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/endorses/lcdissect/internal/pkg/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Dissect frames from a capture file",
	Long: `Read a pcap or pcapng file and print the protocol tree of every frame.

With --field, only the named fields are printed, one line per frame,
tab-separated; repeated occurrences are joined by commas. --where keeps
frames for which a field is present ("tcp") or compares true
("udp.port == 53"); matching frames can be saved with --write.

Examples:
  lcdissect read -r capture.pcap
  lcdissect read -r capture.pcapng -e ip.src -e tcp.dstport
  lcdissect read -r capture.pcap --where 'tcp.flags.syn == 1' -f json
  lcdissect read -r capture.pcap --where 'udp.port == 53' -w dns.pcap`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

var (
	readFile     string
	writeFile    string
	metricsFile  string
	fields       []string
	format       string
	where        string
	workers      int
	maxFrameSize string
	maxTreeItems int
	count        int
	showHidden   bool
	noColor      bool
	pretty       bool
)

func init() {
	ReadCmd.Flags().StringVarP(&readFile, "read-file", "r", "", "capture file to read (pcap or pcapng)")
	ReadCmd.Flags().StringVarP(&writeFile, "write", "w", "", "write frames passing --where to this pcap file")
	ReadCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus counters for the run to this file")
	ReadCmd.Flags().StringSliceVarP(&fields, "field", "e", nil, "print only these fields (repeatable)")
	ReadCmd.Flags().StringVarP(&format, "format", "f", "", "output format: text, json or yaml")
	ReadCmd.Flags().StringVar(&where, "where", "", `frame condition, e.g. "tcp" or "ip.src == 10.0.0.1"`)
	ReadCmd.Flags().IntVarP(&workers, "workers", "j", constants.DefaultWorkers, "frames dissected in parallel")
	ReadCmd.Flags().StringVar(&maxFrameSize, "max-frame-size", "", "skip frames larger than this, e.g. 64KB (default "+constants.DefaultMaxFrameSize+")")
	ReadCmd.Flags().IntVar(&maxTreeItems, "max-tree-items", constants.DefaultMaxTreeItems, "maximum items in one frame's tree")
	ReadCmd.Flags().IntVarP(&count, "count", "c", 0, "stop after this many frames (0 = all)")
	ReadCmd.Flags().BoolVarP(&showHidden, "show-hidden", "H", false, "include hidden fields")
	ReadCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored text output")
	ReadCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")

	_ = ReadCmd.MarkFlagRequired("read-file")

	viper.BindPFlag(constants.ConfigOutputFormat, ReadCmd.Flags().Lookup("format"))
	viper.BindPFlag(constants.ConfigMaxFrameSize, ReadCmd.Flags().Lookup("max-frame-size"))
}

func runRead(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signals.WithSignals(cmd.Context())
	defer stop()

	st, err := run(ctx, opts, cmd.OutOrStdout())
	logger.Info("Dissection complete",
		"file", opts.File,
		"frames", st.Frames,
		"printed", st.Printed,
		"filtered", st.Filtered,
		"skipped", st.Skipped,
		"failed", st.Failed,
		"duration", st.Duration)
	return err
}

// loadOptions merges flags with config values. Explicit flags win.
func loadOptions(cmd *cobra.Command) (Options, error) {
	flags := cmd.Flags()
	opts := Options{
		File:         readFile,
		WriteFile:    writeFile,
		MetricsFile:  metricsFile,
		Fields:       fields,
		Workers:      cmdutil.GetIntConfig(constants.ConfigWorkers, workers, flags.Changed("workers")),
		MaxTreeItems: cmdutil.GetIntConfig(constants.ConfigMaxTreeItems, maxTreeItems, flags.Changed("max-tree-items")),
		Count:        count,
		ShowHidden:   showHidden,
		Pretty:       pretty,
	}

	f, err := output.ParseFormat(cmdutil.GetStringConfig(constants.ConfigOutputFormat, format))
	if err != nil {
		return opts, err
	}
	opts.Format = f

	size := cmdutil.GetStringConfig(constants.ConfigMaxFrameSize, maxFrameSize)
	if size == "" {
		size = constants.DefaultMaxFrameSize
	}
	if opts.MaxFrameSize, err = cmdutil.ParseSizeString(size); err != nil {
		return opts, fmt.Errorf("--max-frame-size: %w", err)
	}

	if where != "" {
		if opts.Where, err = export.ParseCondition(where); err != nil {
			return opts, err
		}
	}
	if opts.WriteFile != "" && opts.Where == nil {
		logger.Warn("--write without --where saves every frame", "file", opts.WriteFile)
	}

	noColor = cmdutil.GetBoolConfig(constants.ConfigOutputNoColor, noColor, flags.Changed("no-color"))
	opts.Color = opts.Format == output.FormatText && len(opts.Fields) == 0 && !noColor && output.IsTTY()
	return opts, nil
}
