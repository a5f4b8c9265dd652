package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// handlerFile is the mapping form of a handler table file.
type handlerFile struct {
	Handlers []string `yaml:"handlers"`
}

// LoadHandlers reads a handler table from a YAML file. The file is either a
// plain sequence of identifiers or a mapping with a "handlers" sequence.
// Order matters: tasks refer to handlers by position.
func LoadHandlers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handler table: %w", err)
	}
	return ParseHandlers(data)
}

// ParseHandlers decodes a handler table.
func ParseHandlers(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse handler table: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var handlers []string
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		err := root.Decode(&handlers)
		if err != nil {
			return nil, fmt.Errorf("failed to parse handler table: %w", err)
		}
	case yaml.MappingNode:
		var f handlerFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse handler table: %w", err)
		}
		handlers = f.Handlers
	default:
		return nil, fmt.Errorf("handler table must be a list, got line %d: %q", root.Line, root.Value)
	}

	for i, h := range handlers {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("handler %d is empty", i)
		}
		handlers[i] = h
	}
	return handlers, nil
}
