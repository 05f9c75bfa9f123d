package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateManifestFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a manifest file",
	Long: `Validate a manifest file (JSON or YAML) against the pipe-graph structural
rules: name conventions, upstream/output presence per pipe kind, upstream
existence, and acyclicity.

Examples:
  pipebase validate -f manifest.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateManifestFile, "file", "f", "manifest.yaml",
		"manifest file to validate")
}

func runValidateCommand() {
	m, err := loadManifest(validateManifestFile)
	if err != nil {
		exitWithError("failed to load manifest", err)
	}

	if err := m.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: manifest %q — %d pipe(s), %d object(s)\n", m.Name, len(m.Pipes), len(m.Objects))
}
