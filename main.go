package main

import (
	"github.com/dagchain-lab/dagchain/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
