package main

import (
	"os"

	"github.com/rlgrid/gridsim/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
