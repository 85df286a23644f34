package main

import (
	"os"

	"github.com/mindfulhq/mindful/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
