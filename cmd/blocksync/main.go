// Command blocksync copies a single large file between two hosts,
// transferring only the blocks that differ.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
)

func main() {
	root := buildRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
