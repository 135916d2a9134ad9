// Command split-pdfs republishes archive volume PDFs as one PDF per case.
//
// Usage:
//
//	split-pdfs [--reporter slug | --publication-year year] [flags]
//
// Configuration is read from the environment, after loading a local .env file if present.
package main

import (
	"fmt"
	"os"

	"github.com/Lllllllleong/caselawarchive/cmd/split-pdfs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
