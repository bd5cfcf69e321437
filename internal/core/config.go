package core

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFilename is searched upward from the working directory, so a
// project-level file applies from any subdirectory.
const ConfigFilename = ".nbrun.toml"

// How many parent directories to traverse before giving up the search
const maxDepth = 10

// Note: Fields must be public for toml package to unmarshall
type ConfigFile struct {
	Tools map[string]ConfigTool
}

// ConfigTool holds the per-tool defaults. Command-line flags win over
// file values.
type ConfigTool struct {
	// Args are appended to every invocation of the tool.
	Args []string
	// Mutate enables mutation by default for this tool.
	Mutate bool
}

// ReadConfigFromDirectory searches a config file in the given directory
// and its parents. A missing file is not an error: defaults apply.
func ReadConfigFromDirectory(path string) (*ConfigFile, error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxDepth; i++ {
		candidate := filepath.Join(absolutePath, ConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return parseConfigFile(candidate)
		}
		parent := filepath.Dir(absolutePath)
		if parent == absolutePath {
			break
		}
		absolutePath = parent
	}

	return &ConfigFile{}, nil
}

func parseConfigFile(path string) (*ConfigFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result ConfigFile
	if err := toml.Unmarshal(content, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tool returns the defaults configured for a tool, if any.
func (f *ConfigFile) Tool(name string) ConfigTool {
	if f.Tools == nil {
		return ConfigTool{}
	}
	return f.Tools[name]
}
