package dag

import (
	"github.com/dagchain-lab/dagchain/command/dag/inspect"
	"github.com/dagchain-lab/dagchain/command/dag/verify"
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	dagCmd := &cobra.Command{
		Use:   "dag",
		Short: "Top level command for working with a block DAG data directory",
	}

	dagCmd.AddCommand(
		inspect.GetCommand(),
		verify.GetCommand(),
	)

	return dagCmd
}
