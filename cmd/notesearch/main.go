// Package main provides the entry point for the notesearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/notesearch/cmd/notesearch/cmd"
	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, nserrors.FormatForCLI(err))
		os.Exit(1)
	}
}
