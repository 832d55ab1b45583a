// Command skillmeat is the CLI entrypoint: a thin wrapper around
// internal/cmd's cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/miethe/skillmeat/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
