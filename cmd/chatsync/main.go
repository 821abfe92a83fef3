// Package main is the entry point for the chatsync CLI.
package main

import (
	"fmt"
	"os"

	"patentchat/internal/cli"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
