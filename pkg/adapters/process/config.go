package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// ProcessConfig describes an external command exposed as a worker function.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of functions.yaml.
type ConfigFile struct {
	Functions []ProcessConfig `yaml:"functions" json:"functions"`
}

// LoadFunctions reads a configuration file (YAML or JSON) and returns the functions by name.
// A missing file means no functions are configured.
func LoadFunctions(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read functions config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	functions := make(map[string]ProcessConfig)
	for _, fn := range cfg.Functions {
		if fn.Name == "" {
			continue
		}
		if fn.Command == "" {
			return nil, fmt.Errorf("function %q has no command", fn.Name)
		}
		functions[fn.Name] = fn
	}
	return functions, nil
}
