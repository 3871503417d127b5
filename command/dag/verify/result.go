package verify

import (
	"fmt"
	"strings"

	"github.com/dagchain-lab/dagchain/command/helper"
	"github.com/dagchain-lab/dagchain/inspect"
)

type VerifyResult struct {
	Blocks     int      `json:"blocks"`
	Violations []string `json:"violations,omitempty"`
}

func newVerifyResult(report *inspect.Report) *VerifyResult {
	return &VerifyResult{
		Blocks:     report.Blocks,
		Violations: report.Violations,
	}
}

func (r *VerifyResult) GetOutput() string {
	var s strings.Builder

	s.WriteString("DAG verification\n")
	s.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Blocks|%d", r.Blocks),
		fmt.Sprintf("Violations|%d", len(r.Violations)),
	}))

	if len(r.Violations) > 0 {
		s.WriteString("\n\n")
		s.WriteString(helper.FormatList(r.Violations))
	}

	return s.String()
}
