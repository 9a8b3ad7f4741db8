package chipdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var structValidate = validator.New()

// Load reads a chip database file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON. The tables are validated before returning.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chip database: %w", err)
	}

	var d Data
	if isYAML(path) {
		err = yaml.Unmarshal(raw, &d)
	} else {
		err = json.Unmarshal(raw, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing chip database %s: %w", path, err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("chip database %s: %w", path, err)
	}
	return &d, nil
}

// Validate checks field constraints and cross references of the tables.
func (d *Data) Validate() error {
	if err := structValidate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	return d.Check()
}

// Save writes the tables in the format selected by the file extension.
func (d *Data) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.MarshalWithOptions(d, yaml.Indent(2))
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling chip database: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing chip database: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
