package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fileDomain struct {
	Names   []string `yaml:"names"`
	Entity  string   `yaml:"entity"`
	Columns []string `yaml:"columns"`
}

type file struct {
	Entities []*Entity    `yaml:"entities"`
	Domains  []fileDomain `yaml:"domains"`
}

// LoadFile builds a Registry from a YAML schema description.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load builds a Registry from YAML read from r.
func Load(r io.Reader) (*Registry, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	reg := NewRegistry()
	for _, e := range doc.Entities {
		if err := reg.AddEntity(e); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	for _, d := range doc.Domains {
		if err := reg.AddDomain(d.Names, d.Entity, d.Columns); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
