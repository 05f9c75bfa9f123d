package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pipebase/pipebase-sub000/internal/manifest"
)

// loadManifest reads and decodes a manifest file. YAML unmarshaling also
// accepts the JSON manifests the original format allows, since JSON is a
// subset of YAML for the flat shapes a manifest uses.
func loadManifest(path string) (manifest.Manifest, error) {
	var m manifest.Manifest

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
