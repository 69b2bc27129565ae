// Package main provides the entry point for the axe CLI.
package main

import (
	"fmt"
	"os"

	"github.com/axe-engine/axe/cmd/axe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
