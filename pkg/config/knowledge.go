package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Component is one node in the infrastructure knowledge graph.
type Component struct {
	Name          string         `yaml:"name" json:"name"`
	Type          string         `yaml:"type" json:"type"`
	Relationships []Relationship `yaml:"relationships,omitempty" json:"relationships,omitempty"`
}

// Relationship is a directed dependency edge from a component.
type Relationship struct {
	DependsOn string `yaml:"depends_on" json:"depends_on"`
}

// KnowledgeGraph describes known infrastructure components and their
// dependencies, used to enrich correlation results.
type KnowledgeGraph struct {
	Components []Component `yaml:"components" json:"components"`

	byName map[string]*Component
}

// knowledgeGraphFile guards against scalar or sequence top-level YAML.
type knowledgeGraphFile struct {
	Components []Component `yaml:"components"`
}

// NewKnowledgeGraph builds a graph from components, indexing by name.
func NewKnowledgeGraph(components []Component) *KnowledgeGraph {
	g := &KnowledgeGraph{
		Components: components,
		byName:     make(map[string]*Component, len(components)),
	}
	for i := range g.Components {
		g.byName[g.Components[i].Name] = &g.Components[i]
	}
	return g
}

// LoadKnowledgeGraph reads the knowledge graph YAML file.
// A missing file yields an empty graph; an empty or malformed file is an
// error since it signals a broken deployment rather than an absent feature.
func LoadKnowledgeGraph(path string) (*KnowledgeGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewKnowledgeGraph(nil), nil
		}
		return nil, NewLoadError(path, err)
	}
	return ParseKnowledgeGraph(path, data)
}

// ParseKnowledgeGraph parses knowledge graph YAML content.
func ParseKnowledgeGraph(path string, data []byte) (*KnowledgeGraph, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, NewLoadError(path,
			NewValidationError("knowledge_graph", path, "",
				fmt.Errorf("%w: file is empty", ErrInvalidValue)))
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, NewLoadError(path,
			NewValidationError("knowledge_graph", path, "",
				fmt.Errorf("%w: top level must be a mapping", ErrInvalidValue)))
	}

	var file knowledgeGraphFile
	if err := doc.Decode(&file); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	for _, c := range file.Components {
		if c.Name == "" {
			return nil, NewLoadError(path,
				NewValidationError("knowledge_graph", path, "name", ErrMissingRequiredField))
		}
	}

	return NewKnowledgeGraph(file.Components), nil
}

// GetComponent looks up a component by name.
func (g *KnowledgeGraph) GetComponent(name string) (*Component, bool) {
	c, ok := g.byName[name]
	return c, ok
}

// GetDependencies returns the names of components the named component
// depends on. Unknown components yield nil.
func (g *KnowledgeGraph) GetDependencies(name string) []string {
	c, ok := g.byName[name]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(c.Relationships))
	for _, rel := range c.Relationships {
		deps = append(deps, rel.DependsOn)
	}
	return deps
}

// Len returns the number of components in the graph.
func (g *KnowledgeGraph) Len() int {
	return len(g.Components)
}
