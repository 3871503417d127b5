package inspect

import (
	"fmt"
	"strings"

	"github.com/dagchain-lab/dagchain/command/helper"
	"github.com/dagchain-lab/dagchain/inspect"
)

type InspectResult struct {
	Blocks         int `json:"blocks"`
	Rows           int `json:"rows"`
	LatestMessages int `json:"latestMessages"`
	InvalidBlocks  int `json:"invalidBlocks"`
	Equivocations  int `json:"equivocations"`
}

func newInspectResult(report *inspect.Report) *InspectResult {
	return &InspectResult{
		Blocks:         report.Blocks,
		Rows:           report.Rows,
		LatestMessages: report.LatestMessages,
		InvalidBlocks:  report.InvalidBlocks,
		Equivocations:  report.Equivocations,
	}
}

func (r *InspectResult) GetOutput() string {
	var s strings.Builder

	s.WriteString("DAG storage\n")
	s.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Blocks|%d", r.Blocks),
		fmt.Sprintf("Rows|%d", r.Rows),
		fmt.Sprintf("Latest Messages|%d", r.LatestMessages),
		fmt.Sprintf("Invalid Blocks|%d", r.InvalidBlocks),
		fmt.Sprintf("Equivocations|%d", r.Equivocations),
	}))

	return s.String()
}
