// Package main is the entry point for the shopfront server.
package main

import (
	"os"

	"shopfront/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		cmd.PrintError(rootCmd, err)
		os.Exit(1)
	}
}
