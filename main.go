// Command pipebase bootstraps and runs a typed dataflow manifest.
package main

import (
	"fmt"
	"os"

	"github.com/pipebase/pipebase-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
