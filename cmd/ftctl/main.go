// Package main provides the entry point for the ftctl CLI.
package main

import (
	"os"

	"github.com/ftengine/ftengine/cmd/ftctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
