// Package cmd implements CLI commands using the cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pipebase",
	Short: "pipebase - typed, declarative dataflow pipe runtime",
	Long: `pipebase turns a manifest describing pipes, objects, and the edges
between them into a running dataflow graph: pollers and listeners produce,
mappers/streamers/selectors/collectors transform and route, exporters sink.

Commands:
  new       scaffold a starter manifest
  generate  expand a manifest into a build-ready summary
  build     validate and resolve every pipe's capability without running it
  describe  print pipes, objects, or the dependency graph
  validate  check a manifest's structural rules
  run       bootstrap a manifest and run it until shutdown`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and parses flags.
// Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml",
		"runtime config file path")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
