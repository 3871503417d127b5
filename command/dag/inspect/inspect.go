package inspect

import (
	"github.com/dagchain-lab/dagchain/command"
	"github.com/dagchain-lab/dagchain/command/helper"
	"github.com/dagchain-lab/dagchain/inspect"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Opens a DAG data directory and reports what it holds",
		Run:   runCommand,
	}

	helper.RegisterPprofFlag(inspectCmd)

	setFlags(inspectCmd)
	helper.SetRequiredFlags(inspectCmd, params.getRequiredFlags())

	return inspectCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.DataDir,
		command.DataDirFlag,
		"",
		"the data directory holding the DAG storage",
	)

	cmd.Flags().String(
		command.LogLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output",
	)
}

func runCommand(cmd *cobra.Command, _ []string) {
	command.InitializePprofServer(cmd)

	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "inspect",
		Level: command.ParseLogLevel(cmd),
	})

	report, err := inspect.InspectStorage(logger, params.DataDir)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(newInspectResult(report))
}
