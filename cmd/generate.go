package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "github.com/pipebase/pipebase-sub000/internal/builtin"
	"github.com/pipebase/pipebase-sub000/internal/manifest"
)

var generateManifestFile string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Expand a manifest into a build-ready summary",
	Long: `generate is the design-time expansion step: in a codegen target this
would emit source files per object/pipe; here, since every pipe shape is a Go
generic instantiated at bootstrap, generate instead prints the concrete
wiring plan — object types, pipe kinds, and adapter bindings — so it can be
reviewed before "pipebase build" resolves it for real.

Examples:
  pipebase generate -f manifest.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runGenerateCommand()
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateManifestFile, "file", "f", "manifest.yaml", "manifest file to expand")
}

func runGenerateCommand() {
	m, err := loadManifest(generateManifestFile)
	if err != nil {
		exitWithError("failed to load manifest", err)
	}
	if err := m.Validate(); err != nil {
		exitWithError("manifest is invalid", err)
	}

	fmt.Printf("module %s\n\n", m.Name)
	fmt.Println("types:")
	for _, o := range m.Objects {
		fmt.Printf("  type %s struct {\n", o.Name)
		for _, f := range o.Fields {
			fmt.Printf("    %s %s\n", f.Name, f.Type)
		}
		fmt.Println("  }")
	}

	fmt.Println("\nwiring:")
	for _, p := range m.Pipes {
		fmt.Printf("  %s: %s/%s", p.Name, p.Kind, p.Config.Type)
		if ups := p.UpstreamNames(); len(ups) > 0 {
			fmt.Printf(" <- %v", ups)
		}
		fmt.Println()
	}

	printPipeSummaryCounts(m)
}

func printPipeSummaryCounts(m manifest.Manifest) {
	counts := make(map[manifest.Kind]int)
	for _, p := range m.Pipes {
		counts[p.Kind]++
	}
	fmt.Println("\nsummary:")
	for _, k := range []manifest.Kind{
		manifest.KindListener, manifest.KindPoller, manifest.KindMapper,
		manifest.KindStreamer, manifest.KindSelector, manifest.KindCollector, manifest.KindExporter,
	} {
		if counts[k] > 0 {
			fmt.Printf("  %s: %d\n", k, counts[k])
		}
	}
}
