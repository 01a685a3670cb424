package instruction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadFile loads instruction lines from path. Files with a .yaml or .yml
// extension must carry an instructions: block, either a block scalar or a
// list of strings. Any other extension is read as plain text, one
// instruction per line.
func ReadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAML(data)
	default:
		return strings.Split(string(data), "\n"), nil
	}
}

// LoadFile reads and parses an instruction file in one step.
func LoadFile(path string) ([]Action, error) {
	lines, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLines(lines)
}

func readYAML(data []byte) ([]string, error) {
	var doc struct {
		Instructions yaml.Node `yaml:"instructions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse instruction YAML: %w", err)
	}

	switch doc.Instructions.Kind {
	case yaml.ScalarNode:
		return strings.Split(doc.Instructions.Value, "\n"), nil
	case yaml.SequenceNode:
		var items []string
		if err := doc.Instructions.Decode(&items); err != nil {
			return nil, fmt.Errorf("instructions list must contain plain strings: %w", err)
		}
		return items, nil
	case 0:
		return nil, fmt.Errorf("instruction YAML is missing an instructions block")
	default:
		return nil, fmt.Errorf("instructions block must be a string or a list of strings")
	}
}
