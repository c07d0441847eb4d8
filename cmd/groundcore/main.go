package main

import (
	"os"

	"github.com/netrasat/groundcore/cmd/groundcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
