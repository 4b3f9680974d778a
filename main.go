package main

import (
	"os"

	"github.com/mcpagent/mcpagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
