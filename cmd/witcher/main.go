// Package main provides the entry point for the witcher CLI.
package main

import (
	"os"

	"github.com/YauheniMa/witcher-bot/cmd/witcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
