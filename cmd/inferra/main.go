// Package main provides the CLI for the Inferra analysis engine.
package main

import (
	"os"

	"github.com/marinad-syro/inferra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
