package helper

import (
	"strings"

	"github.com/dagchain-lab/dagchain/command"
	"github.com/spf13/cobra"
)

func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

func RegisterPprofFlag(cmd *cobra.Command) {
	cmd.Flags().Bool(
		command.PprofFlag,
		false,
		"start a pprof server (default false)",
	)

	cmd.Flags().String(
		command.PprofAddressFlag,
		command.DefaultPprofAddress,
		"the address the pprof server listens on",
	)
}

func SetRequiredFlags(cmd *cobra.Command, requiredFlags []string) {
	for _, flag := range requiredFlags {
		_ = cmd.MarkFlagRequired(flag)
	}
}

// FormatKV renders "key|value" rows with the values aligned on one
// column.
func FormatKV(rows []string) string {
	width := 0

	for _, row := range rows {
		if i := strings.IndexByte(row, '|'); i > width {
			width = i
		}
	}

	var s strings.Builder

	for i, row := range rows {
		if i > 0 {
			s.WriteByte('\n')
		}

		key, value, found := strings.Cut(row, "|")
		if !found {
			s.WriteString(row)

			continue
		}

		s.WriteString(key)
		s.WriteString(strings.Repeat(" ", width-len(key)+1))
		s.WriteString("= ")
		s.WriteString(value)
	}

	return s.String()
}

// FormatList renders the rows one per line.
func FormatList(rows []string) string {
	return strings.Join(rows, "\n")
}
