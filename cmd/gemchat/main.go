// Package main provides the entry point for the gemchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/gemchat/gemchat/cmd/gemchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
