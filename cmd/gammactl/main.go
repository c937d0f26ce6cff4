package main

import (
	"os"

	"github.com/davidsha/gammarpc/cmd/gammactl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
