package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var newOutFile string

const starterManifest = `name: my_pipeline
pipes:
  - name: ticker
    kind: poller
    config:
      type: timer
    output: Tick
  - name: sink
    kind: exporter
    config:
      type: stdout
    upstreams: ticker
`

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Scaffold a starter manifest",
	Long: `new writes a minimal two-pipe manifest (a timer poller feeding a
stdout exporter) to get a new project started.

Examples:
  pipebase new -o manifest.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runNewCommand()
	},
}

func init() {
	newCmd.Flags().StringVarP(&newOutFile, "out", "o", "manifest.yaml", "path to write the starter manifest to")
}

func runNewCommand() {
	if _, err := os.Stat(newOutFile); err == nil {
		exitWithError(fmt.Sprintf("%s already exists", newOutFile), nil)
	}
	if err := os.WriteFile(newOutFile, []byte(starterManifest), 0o644); err != nil {
		exitWithError("failed to write manifest", err)
	}
	fmt.Printf("wrote starter manifest to %s\n", newOutFile)
}
