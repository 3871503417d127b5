package command

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// ParseLogLevel resolves the log-level flag, falling back to INFO on
// anything unparseable.
func ParseLogLevel(cmd *cobra.Command) hclog.Level {
	raw, err := cmd.Flags().GetString(LogLevelFlag)
	if err != nil {
		return hclog.Info
	}

	level := hclog.LevelFromString(raw)
	if level == hclog.NoLevel {
		return hclog.Info
	}

	return level
}
