package main

import (
	"os"

	"showrunner/cmd/showrunner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
