package main

import (
	"os"

	"github.com/davidsha/gammarpc/cmd/gammarpc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
