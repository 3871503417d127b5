package inspect

import (
	"github.com/dagchain-lab/dagchain/command"
)

var params = &inspectParams{}

type inspectParams struct {
	DataDir string
}

func (p *inspectParams) getRequiredFlags() []string {
	return []string{
		command.DataDirFlag,
	}
}
