// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hyper resolves operator hyperparameters per parameter key.
//
// A merge recipe rarely uses one flat scalar for a whole model: block or
// layer granularity is the norm. A Value is either a plain scalar applied
// to every key, or a per-key table with an optional default. Sets of
// values load from YAML:
//
//	alpha: 0.5
//	tilt:
//	  default: 0.0
//	  keys:
//	    model.layers.0.attn.weight: 0.25
//	    model.layers.1.attn.weight: 0.5
package hyper

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Value is one hyperparameter: a scalar, or a per-key table with an
// optional fallback. The zero Value resolves nothing.
type Value struct {
	scalar     float64
	hasScalar  bool
	perKey     map[string]float64
	fallback   float64
	hasDefault bool
}

// Scalar returns a Value applying v to every key.
func Scalar(v float64) Value {
	return Value{scalar: v, hasScalar: true}
}

// PerKey returns a Value resolving keys through the table, falling back to
// fallback for keys not present.
func PerKey(table map[string]float64, fallback float64) Value {
	m := make(map[string]float64, len(table))
	for k, v := range table {
		m[k] = v
	}
	return Value{perKey: m, fallback: fallback, hasDefault: true}
}

// Sparse returns a per-key Value with no fallback: unlisted keys do not
// resolve and take the operator's own default instead.
func Sparse(table map[string]float64) Value {
	v := PerKey(table, 0)
	v.hasDefault = false
	return v
}

// Resolve returns the value for key and whether one was found.
func (v Value) Resolve(key string) (float64, bool) {
	if v.hasScalar {
		return v.scalar, true
	}
	if x, ok := v.perKey[key]; ok {
		return x, true
	}
	if v.hasDefault {
		return v.fallback, true
	}
	return 0, false
}

// UnmarshalYAML accepts either a bare scalar or a mapping with optional
// "default" and "keys" entries.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("hyper: scalar value: %w", err)
		}
		*v = Scalar(f)
		return nil
	}

	var table struct {
		Default *float64           `yaml:"default"`
		Keys    map[string]float64 `yaml:"keys"`
	}
	if err := node.Decode(&table); err != nil {
		return fmt.Errorf("hyper: per-key value: %w", err)
	}
	if table.Default != nil {
		*v = PerKey(table.Keys, *table.Default)
	} else {
		*v = Sparse(table.Keys)
	}
	return nil
}

// Set names the hyperparameter values of one operator call.
type Set map[string]Value

// Resolve flattens the set for one parameter key into the plain
// name-to-scalar map the operator registry consumes. Names that do not
// resolve for the key are omitted so the operator default applies.
func (s Set) Resolve(key string) map[string]float64 {
	out := make(map[string]float64, len(s))
	for name, v := range s {
		if x, ok := v.Resolve(key); ok {
			out[name] = x
		}
	}
	return out
}

// Parse decodes a YAML document of named hyperparameter values.
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("hyper: %w", err)
	}
	if s == nil {
		s = Set{}
	}
	return s, nil
}

// Load reads and parses a YAML document.
func Load(r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("hyper: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and parses a YAML file.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hyper: %w", err)
	}
	return Parse(data)
}
