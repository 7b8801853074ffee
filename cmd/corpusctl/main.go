package main

import (
	"os"

	"github.com/RishiKendai/provenance/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
