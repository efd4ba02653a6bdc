package main

import (
	"fmt"
	"os"

	"github.com/lotusdb/lotus/cmd/lotus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(1)
	}
}
