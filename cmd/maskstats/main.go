// Command maskstats computes morphological, spatial and cell/nucleus
// relationship statistics over segmentation mask stacks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
