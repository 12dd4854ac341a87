package raindrop

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Export is the root of a Raindrop export file. JSON exports parse as YAML too.
//
//	user_id: alice
//	raindrops:
//	  - _id: 123
//	    title: Go
//	    link: https://go.dev
//	    tags: [lang]
//	    created: 2024-05-01T10:00:00Z
type Export struct {
	UserID    string `yaml:"user_id"`
	Raindrops []Item `yaml:"raindrops"`
}

// Item is one exported bookmark. Title is nil when the provider sent null.
type Item struct {
	ID      SourceID `yaml:"_id"`
	Title   *string  `yaml:"title"`
	Link    *string  `yaml:"link"`
	Tags    []string `yaml:"tags"`
	Created string   `yaml:"created"`
}

// SourceID accepts both numeric and string ids and keeps them as text.
type SourceID string

// UnmarshalYAML implements yaml.Unmarshaler.
func (id *SourceID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: _id must be a number or a string", node.Line)
	}
	if node.Tag == "!!null" {
		*id = ""
		return nil
	}
	*id = SourceID(node.Value)
	return nil
}
