package verify

import (
	"fmt"

	"github.com/dagchain-lab/dagchain/command"
	"github.com/dagchain-lab/dagchain/command/helper"
	"github.com/dagchain-lab/dagchain/inspect"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:     "verify",
		Short:   "Walks a DAG data directory and checks its structural invariants",
		PreRunE: runPreRun,
		RunE:    runCommand,
	}

	helper.RegisterPprofFlag(verifyCmd)

	setFlags(verifyCmd)
	helper.SetRequiredFlags(verifyCmd, params.getRequiredFlags())

	return verifyCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.DataDir,
		command.DataDirFlag,
		"",
		"the data directory holding the DAG storage",
	)

	cmd.Flags().Int64Var(
		&params.StartNumber,
		startNumberFlag,
		0,
		"the block number the walk starts from",
	)

	cmd.Flags().String(
		command.LogLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output",
	)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) error {
	command.InitializePprofServer(cmd)

	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "verify",
		Level: command.ParseLogLevel(cmd),
	})

	report, err := inspect.VerifyStorage(logger, params.DataDir, params.StartNumber)
	if err != nil {
		outputter.SetError(err)

		return err
	}

	outputter.SetCommandResult(newVerifyResult(report))

	if len(report.Violations) > 0 {
		return fmt.Errorf("%d invariant violations found", len(report.Violations))
	}

	return nil
}
