package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/endorses/lcdissect/cmd/glossary"
	"github.com/endorses/lcdissect/cmd/read"
	"github.com/endorses/lcdissect/cmd/values"
	"github.com/endorses/lcdissect/internal/pkg/constants"
	"github.com/endorses/lcdissect/internal/pkg/logger"
	"github.com/endorses/lcdissect/internal/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "lcdissect",
	Short: "lcdissect dissects captured frames",
	Long: fmt.Sprintf(`lcdissect %s - protocol dissector for capture files

Decodes Ethernet, IPv4, IPv6, UDP and TCP frames into field trees,
prints the field glossary and exercises the field value types.`, version.GetShortVersion()),
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: applyLogLevel,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func addSubCommands() {
	rootCmd.AddCommand(read.ReadCmd)
	rootCmd.AddCommand(glossary.GlossaryCmd)
	rootCmd.AddCommand(values.ValuesCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	logger.Initialize()

	addSubCommands()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lcdissect/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	_ = viper.BindPFlag(constants.ConfigLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

func applyLogLevel(cmd *cobra.Command, args []string) error {
	s := viper.GetString(constants.ConfigLogLevel)
	if s == "" {
		return nil
	}
	level, err := logger.ParseLevel(s)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Priority order for config files:
		// 1. ~/.config/lcdissect/config.yaml
		// 2. ~/.config/lcdissect.yaml
		// 3. ~/.lcdissect.yaml
		viper.AddConfigPath(home + "/.config/lcdissect")
		viper.AddConfigPath(home + "/.config")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigName("lcdissect")
			if err := viper.ReadInConfig(); err != nil {
				viper.SetConfigName(".lcdissect")
			}
		}
	}

	viper.SetEnvPrefix("LCDISSECT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
