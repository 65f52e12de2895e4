// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/viper"
)

// GetStringConfig returns the config value for key, or flagValue if the key is not set.
// Flag values take precedence over config file values.
func GetStringConfig(key, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// GetIntConfig returns flagValue when the flag was set explicitly, otherwise
// the config value for key, otherwise flagValue.
func GetIntConfig(key string, flagValue int, flagChanged bool) int {
	if flagChanged {
		return flagValue
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return flagValue
}

// GetBoolConfig returns flagValue when the flag was set explicitly, otherwise
// the config value for key, otherwise flagValue.
func GetBoolConfig(key string, flagValue bool, flagChanged bool) bool {
	if flagChanged {
		return flagValue
	}
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return flagValue
}

// ParseSizeString parses a size such as "64KB", "16MB" or "1GB" and returns
// bytes. Units are binary multiples; a bare number is taken as bytes.
func ParseSizeString(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return size.Bytes(), nil
}

// FormatSize renders a byte count the way ParseSizeString accepts it.
func FormatSize(n uint64) string {
	return datasize.ByteSize(n).String()
}
