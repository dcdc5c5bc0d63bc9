package flow

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a flows file.
//
//	flows:
//	  - type: tip
//	    submit: true
//	    ttl: 10m
//	    steps:
//	      - name: amount
//	        component: AmountInput
//	      - name: handle
//	        component: HandleInput
type File struct {
	Flows []Config `yaml:"flows"`
}

// Parse decodes a flows file. Unknown fields and unknown component names are
// rejected.
func Parse(data []byte) ([]Config, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse flows: %w", err)
	}
	for _, c := range f.Flows {
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	return f.Flows, nil
}

// LoadFile reads a flows file and returns base extended with its flows.
func LoadFile(base *Registry, path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flows file: %w", err)
	}
	configs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base.With(configs...)
}
