// Package tools describes the external code-quality tools nbrun knows
// about. The registry only feeds defaults and install hints; any tool
// not listed here still runs with the generic behavior.
package tools

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/nbrun/nbrun/pkg/resync"
)

//go:embed registry.yml
var registryYAML []byte

var (
	// Lazy-load and ensure a single read
	registryOnce      resync.Once
	registrySingleton *Registry
	registryErr       error
)

// Tool captures the notebook-relevant traits of one external tool.
type Tool struct {
	// Mutates indicates the tool rewrites files in place.
	Mutates bool `yaml:"mutates"`
	// Install is the package name to suggest when the command is
	// missing. Empty means there is nothing to install.
	Install string `yaml:"install"`
}

type Registry struct {
	Tools         map[string]Tool `yaml:"tools"`
	ProcessMagics []string        `yaml:"process_magics"`
}

// Load returns the embedded registry.
func Load() (*Registry, error) {
	registryOnce.Do(func() {
		var r Registry
		if err := yaml.Unmarshal(registryYAML, &r); err != nil {
			registryErr = err
			return
		}
		registrySingleton = &r
	})
	return registrySingleton, registryErr
}

// Lookup finds a known tool by command name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.Tools[name]
	return tool, ok
}

// InstallHint returns the package to suggest installing for a command.
func (r *Registry) InstallHint(name string) string {
	if tool, ok := r.Tools[name]; ok {
		return tool.Install
	}
	return name
}

// IsProcessMagic reports whether a cell magic hands the cell body to
// another process, making it opaque to a Python tool.
func (r *Registry) IsProcessMagic(name string) bool {
	for _, magic := range r.ProcessMagics {
		if magic == name {
			return true
		}
	}
	return false
}
