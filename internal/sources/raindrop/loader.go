// Package raindrop reads Raindrop export files and maps them to staging bookmarks.
package raindrop

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a Raindrop export file
type Loader struct {
	filePath string
}

// NewLoader creates a new Raindrop export loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the export file
func (l *Loader) Load() (*Export, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON export.
func Parse(data []byte) (*Export, error) {
	var export Export
	if err := yaml.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return &export, nil
}
