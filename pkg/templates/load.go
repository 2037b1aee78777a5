package templates

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// Load reads, parses, and validates a template file. JSON and YAML are
// supported, chosen by file extension.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return ParseJSON(data, path)
	}
}

// ParseJSON parses and validates a JSON template document. The name argument
// is used only for error reporting.
func ParseJSON(data []byte, name string) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.WrapParse("json", name, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseYAML parses and validates a YAML template document by converting it
// to JSON first, so the same forward-compatible round-trip rules apply.
func ParseYAML(data []byte, name string) (*Template, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	return ParseJSON(jsonData, name)
}
