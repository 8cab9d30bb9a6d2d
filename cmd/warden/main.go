package main

import (
	"os"

	"warden/cmd/warden/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
