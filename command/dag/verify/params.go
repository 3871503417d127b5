package verify

import (
	"fmt"

	"github.com/dagchain-lab/dagchain/command"
)

const startNumberFlag = "start-number"

var params = &verifyParams{}

type verifyParams struct {
	DataDir     string
	StartNumber int64
}

func (p *verifyParams) validateFlags() error {
	if p.StartNumber < 0 {
		return fmt.Errorf("start number must not be negative, got %d", p.StartNumber)
	}

	return nil
}

func (p *verifyParams) getRequiredFlags() []string {
	return []string{
		command.DataDirFlag,
	}
}
