package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validOutputs    = []string{"auto", "text", "json", "table"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Program == "" {
		return fmt.Errorf("program is required")
	}
	if !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (want %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level %q (want %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q (want %s)", c.LogFormat, strings.Join(validLogFormats, ", "))
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.Profile != "" {
		if _, ok := c.Profiles[c.Profile]; !ok {
			return fmt.Errorf("unknown profile %q", c.Profile)
		}
	}
	return nil
}
