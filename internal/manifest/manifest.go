// Package manifest implements the design-time graph document a pipebase
// process is bootstrapped from: its schema, decode, and structural
// validation (name conventions, upstream/output presence rules, acyclicity).
package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind enumerates the seven pipe shapes a manifest entry can bind to.
type Kind string

const (
	KindListener  Kind = "listener"
	KindPoller    Kind = "poller"
	KindMapper    Kind = "mapper"
	KindCollector Kind = "collector"
	KindSelector  Kind = "selector"
	KindExporter  Kind = "exporter"
	KindStreamer  Kind = "streamer"
)

var validKinds = map[Kind]bool{
	KindListener: true, KindPoller: true, KindMapper: true,
	KindCollector: true, KindSelector: true, KindExporter: true, KindStreamer: true,
}

// Manifest is the top-level graph document, decoded from YAML/JSON through
// its yaml tags; the mapstructure tags carry the same keys for viper-style
// decoding (the binding style internal/config uses).
type Manifest struct {
	Name         string         `mapstructure:"name" yaml:"name"`
	Dependencies []string       `mapstructure:"dependencies" yaml:"dependencies"`
	Objects      []ObjectDef    `mapstructure:"objects" yaml:"objects"`
	Pipes        []PipeDef      `mapstructure:"pipes" yaml:"pipes"`
	CStores      []CStoreDef    `mapstructure:"cstores" yaml:"cstores"`
	Error        *ErrorDef      `mapstructure:"error" yaml:"error"`
}

// ObjectDef describes a user-defined data type.
type ObjectDef struct {
	Name       string      `mapstructure:"name" yaml:"name"`
	Fields     []FieldDef  `mapstructure:"fields" yaml:"fields"`
	Attributes []string    `mapstructure:"attributes" yaml:"attributes"`
}

// FieldDef describes one field of an ObjectDef.
type FieldDef struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Type       string   `mapstructure:"type" yaml:"type"`
	Attributes []string `mapstructure:"attributes" yaml:"attributes"`
}

// PipeDef describes one node in the dataflow graph.
type PipeDef struct {
	Name      string     `mapstructure:"name" yaml:"name"`
	Kind      Kind       `mapstructure:"kind" yaml:"kind"`
	Config    ConfigRef  `mapstructure:"config" yaml:"config"`
	Upstreams string     `mapstructure:"upstreams" yaml:"upstreams"` // comma-separated
	Output    string     `mapstructure:"output" yaml:"output"`
	Buffer    int        `mapstructure:"buffer" yaml:"buffer"`
}

// UpstreamNames splits the comma-separated Upstreams field, trimming
// whitespace and dropping empty entries.
func (p PipeDef) UpstreamNames() []string {
	if strings.TrimSpace(p.Upstreams) == "" {
		return nil
	}
	parts := strings.Split(p.Upstreams, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if n := strings.TrimSpace(part); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// ConfigRef names the adapter type a pipe binds to, plus an optional
// on-disk config path passed to its factory.
type ConfigRef struct {
	Type string `mapstructure:"type" yaml:"type"`
	Path string `mapstructure:"path" yaml:"path"`
}

// CStoreDef describes a context-observer pipe.
type CStoreDef struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// ErrorDef describes the error-handler pipe, if any.
type ErrorDef struct {
	Name string `mapstructure:"name" yaml:"name"`
}

var (
	snakeCaseRE  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	camelCaseRE  = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

// Validate applies the structural rules: name conventions, upstream
// existence, per-kind upstream/output presence, and acyclicity.
func (m Manifest) Validate() error {
	if err := m.validatePipeNames(); err != nil {
		return err
	}
	if err := m.validateObjectNames(); err != nil {
		return err
	}
	if err := m.validatePresenceRules(); err != nil {
		return err
	}
	if err := m.validateUpstreamsExist(); err != nil {
		return err
	}
	if err := m.validateAcyclic(); err != nil {
		return err
	}
	return nil
}

func (m Manifest) validatePipeNames() error {
	seen := make(map[string]bool, len(m.Pipes))
	for _, p := range m.Pipes {
		if !snakeCaseRE.MatchString(p.Name) {
			return fmt.Errorf("manifest: pipe name %q must be snake_case", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("manifest: duplicate pipe name %q", p.Name)
		}
		seen[p.Name] = true
		if !validKinds[p.Kind] {
			return fmt.Errorf("manifest: pipe %q has unknown kind %q", p.Name, p.Kind)
		}
	}
	return nil
}

func (m Manifest) validateObjectNames() error {
	seenObj := make(map[string]bool, len(m.Objects))
	for _, o := range m.Objects {
		if !camelCaseRE.MatchString(o.Name) {
			return fmt.Errorf("manifest: object name %q must be CamelCase", o.Name)
		}
		if seenObj[o.Name] {
			return fmt.Errorf("manifest: duplicate object name %q", o.Name)
		}
		seenObj[o.Name] = true

		seenField := make(map[string]bool, len(o.Fields))
		for _, f := range o.Fields {
			if !snakeCaseRE.MatchString(f.Name) {
				return fmt.Errorf("manifest: object %q field %q must be snake_case", o.Name, f.Name)
			}
			if seenField[f.Name] {
				return fmt.Errorf("manifest: object %q has duplicate field %q", o.Name, f.Name)
			}
			seenField[f.Name] = true
		}
	}
	return nil
}

func (m Manifest) validatePresenceRules() error {
	for _, p := range m.Pipes {
		ups := p.UpstreamNames()
		switch p.Kind {
		case KindListener, KindPoller:
			if len(ups) != 0 {
				return fmt.Errorf("manifest: source pipe %q must not declare upstreams", p.Name)
			}
			if p.Output == "" {
				return fmt.Errorf("manifest: source pipe %q must declare an output type", p.Name)
			}
		case KindExporter:
			if len(ups) == 0 {
				return fmt.Errorf("manifest: sink pipe %q must have at least one upstream", p.Name)
			}
			if p.Output != "" {
				return fmt.Errorf("manifest: sink pipe %q must not declare an output type", p.Name)
			}
		default:
			if len(ups) == 0 {
				return fmt.Errorf("manifest: pipe %q must have at least one upstream", p.Name)
			}
			if p.Output == "" {
				return fmt.Errorf("manifest: pipe %q must declare an output type", p.Name)
			}
		}
	}
	return nil
}

func (m Manifest) validateUpstreamsExist() error {
	exists := make(map[string]bool, len(m.Pipes))
	for _, p := range m.Pipes {
		exists[p.Name] = true
	}
	for _, p := range m.Pipes {
		for _, up := range p.UpstreamNames() {
			if !exists[up] {
				return fmt.Errorf("manifest: pipe %q references unknown upstream %q", p.Name, up)
			}
		}
	}
	return nil
}

// validateAcyclic walks the upstream→downstream edges (an edge from u to p
// exists when p lists u as an upstream) via depth-first search, failing on
// any back-edge into the current recursion stack.
func (m Manifest) validateAcyclic() error {
	adjacency := make(map[string][]string, len(m.Pipes))
	for _, p := range m.Pipes {
		for _, up := range p.UpstreamNames() {
			adjacency[up] = append(adjacency[up], p.Name)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(m.Pipes))

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		for _, next := range adjacency[name] {
			switch color[next] {
			case gray:
				return fmt.Errorf("manifest: cycle detected involving pipe %q", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for _, p := range m.Pipes {
		if color[p.Name] == white {
			if err := visit(p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
