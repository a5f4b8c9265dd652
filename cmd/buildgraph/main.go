// Package main provides the buildgraph CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/buildgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
