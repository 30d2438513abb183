package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/weldsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "weldsim: %v\n", err)
		os.Exit(1)
	}
}
