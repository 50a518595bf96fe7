package main

import (
	"os"

	"github.com/codeready-toolchain/inquest/cmd/inquestctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
