package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pipebase/pipebase-sub000/internal/manifest"
)

var (
	describeManifestFile string
	describePipe         bool
	describeObject       bool
	describeGraph        bool
	describeAll          bool
	describePipelines    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print pipes, objects, or the dependency graph of a manifest",
	Long: `describe inspects a manifest and prints one of its facets:

  --pipe       one line per pipe: name, kind, upstreams, output
  --object     one line per object: name and its fields
  --graph      the pipe dependency edges (upstream -> downstream)
  --pipelines  the graph grouped into connected source-to-sink chains
  --all        everything above

Examples:
  pipebase describe -f manifest.yaml --all`,
	Run: func(cmd *cobra.Command, args []string) {
		runDescribeCommand()
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeManifestFile, "file", "f", "manifest.yaml", "manifest file to describe")
	describeCmd.Flags().BoolVar(&describePipe, "pipe", false, "print pipes")
	describeCmd.Flags().BoolVar(&describeObject, "object", false, "print objects")
	describeCmd.Flags().BoolVar(&describeGraph, "graph", false, "print the dependency graph")
	describeCmd.Flags().BoolVar(&describePipelines, "pipelines", false, "print connected source-to-sink chains")
	describeCmd.Flags().BoolVar(&describeAll, "all", false, "print everything")
}

func runDescribeCommand() {
	m, err := loadManifest(describeManifestFile)
	if err != nil {
		exitWithError("failed to load manifest", err)
	}

	none := !describePipe && !describeObject && !describeGraph && !describePipelines && !describeAll
	if none {
		describeAll = true
	}

	if describePipe || describeAll {
		printPipes(m)
	}
	if describeObject || describeAll {
		printObjects(m)
	}
	if describeGraph || describeAll {
		printGraph(m)
	}
	if describePipelines || describeAll {
		printPipelines(m)
	}
}

func printPipes(m manifest.Manifest) {
	fmt.Println("PIPES")
	for _, p := range m.Pipes {
		ups := p.UpstreamNames()
		fmt.Printf("  %-20s kind=%-10s upstreams=%-20v output=%s\n", p.Name, p.Kind, ups, p.Output)
	}
}

func printObjects(m manifest.Manifest) {
	fmt.Println("OBJECTS")
	for _, o := range m.Objects {
		names := make([]string, 0, len(o.Fields))
		for _, f := range o.Fields {
			names = append(names, f.Name+":"+f.Type)
		}
		fmt.Printf("  %-20s fields=%v\n", o.Name, names)
	}
}

func printGraph(m manifest.Manifest) {
	fmt.Println("GRAPH")
	for _, p := range m.Pipes {
		for _, up := range p.UpstreamNames() {
			fmt.Printf("  %s -> %s\n", up, p.Name)
		}
	}
}

// printPipelines groups the graph into weakly-connected components, each a
// source-to-sink chain of pipes.
func printPipelines(m manifest.Manifest) {
	parent := make(map[string]string, len(m.Pipes))
	for _, p := range m.Pipes {
		parent[p.Name] = p.Name
	}
	var find func(string) string
	find = func(n string) string {
		if parent[n] != n {
			parent[n] = find(parent[n])
		}
		return parent[n]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, p := range m.Pipes {
		for _, up := range p.UpstreamNames() {
			union(up, p.Name)
		}
	}

	groups := make(map[string][]string)
	for _, p := range m.Pipes {
		root := find(p.Name)
		groups[root] = append(groups[root], p.Name)
	}

	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	fmt.Println("PIPELINES")
	for i, root := range roots {
		members := groups[root]
		sort.Strings(members)
		fmt.Printf("  pipeline %d: %v\n", i+1, members)
	}
}
