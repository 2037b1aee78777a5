// Package main provides the entry point for the fieldmap CLI tool.
package main

import (
	"os"

	"github.com/fieldmap/fieldmap/cmd/fieldmap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
