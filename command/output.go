package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CommandResult is the human-readable rendering of a finished command.
type CommandResult interface {
	GetOutput() string
}

// Outputter collects a command's result or error and writes it out in
// the format the user asked for.
type Outputter interface {
	SetError(err error)
	SetCommandResult(result CommandResult)
	WriteOutput()
}

// InitializeOutputter returns the outputter matching the --json flag of
// the command.
func InitializeOutputter(cmd *cobra.Command) Outputter {
	if ok, _ := cmd.Flags().GetBool(JSONOutputFlag); ok {
		return &jsonOutput{}
	}

	return &cliOutput{}
}

type commonOutputFormatter struct {
	errorOutput   error
	commandOutput CommandResult
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}

type cliOutput struct {
	commonOutputFormatter
}

func (c *cliOutput) WriteOutput() {
	if c.errorOutput != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", c.errorOutput)

		return
	}

	if c.commandOutput != nil {
		_, _ = fmt.Fprintln(os.Stdout, c.commandOutput.GetOutput())
	}
}

type jsonOutput struct {
	commonOutputFormatter
}

func (j *jsonOutput) WriteOutput() {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "    ")

	if j.errorOutput != nil {
		_ = encoder.Encode(map[string]string{"error": j.errorOutput.Error()})
		_, _ = os.Stderr.Write(buf.Bytes())

		return
	}

	_ = encoder.Encode(j.commandOutput)
	_, _ = os.Stdout.Write(buf.Bytes())
}
