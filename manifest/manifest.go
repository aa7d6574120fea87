// Package manifest loads and validates module manifests. A manifest
// declares the modules of a package, the wasm binaries they run in and
// how their inputs are wired together.
package manifest

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Module kinds.
const (
	KindMap   = "map"
	KindStore = "store"
)

// Store update policies.
const (
	PolicySet            = "set"
	PolicySetIfNotExists = "set_if_not_exists"
	PolicyAppend         = "append"
	PolicyAdd            = "add"
	PolicyMin            = "min"
	PolicyMax            = "max"
)

// Store input modes.
const (
	ModeGet    = "get"
	ModeDeltas = "deltas"
)

// validate is shared across calls; building a validator is expensive.
var validate = validator.New()

// Manifest is the top-level document.
type Manifest struct {
	SpecVersion string            `yaml:"specVersion" validate:"required"`
	Package     Package           `yaml:"package"`
	Binaries    map[string]Binary `yaml:"binaries" validate:"required,min=1,dive"`
	Modules     []Module          `yaml:"modules" validate:"required,min=1,dive"`
}

// Package identifies the module package.
type Package struct {
	Name    string `yaml:"name" validate:"required"`
	Version string `yaml:"version"`
}

// Binary points at a wasm file.
type Binary struct {
	File string `yaml:"file" validate:"required"`
}

// Module declares one handler.
type Module struct {
	Name         string  `yaml:"name" validate:"required"`
	Kind         string  `yaml:"kind" validate:"required,oneof=map store"`
	InitialBlock uint64  `yaml:"initialBlock"`
	Binary       string  `yaml:"binary"`
	UpdatePolicy string  `yaml:"updatePolicy" validate:"omitempty,oneof=set set_if_not_exists append add min max"`
	ValueType    string  `yaml:"valueType"`
	Inputs       []Input `yaml:"inputs" validate:"dive"`
}

// Input is one handler argument. Exactly one of Source, Map or Store is
// set.
type Input struct {
	Source string `yaml:"source"`
	Map    string `yaml:"map"`
	Store  string `yaml:"store"`
	Mode   string `yaml:"mode" validate:"omitempty,oneof=get deltas"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// numericValueTypes are the value types the add, min and max policies
// accept.
var numericValueTypes = map[string]bool{
	"int64":      true,
	"float64":    true,
	"bigint":     true,
	"bigdecimal": true,
}

// scalarValueTypes are all non-proto value types.
var scalarValueTypes = map[string]bool{
	"string":     true,
	"bytes":      true,
	"int64":      true,
	"float64":    true,
	"bigint":     true,
	"bigdecimal": true,
}

// Validate checks struct tags and the cross-field rules the tags cannot
// express.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	seen := make(map[string]bool, len(m.Modules))
	for i := range m.Modules {
		mod := &m.Modules[i]
		if seen[mod.Name] {
			return fmt.Errorf("module %q: duplicate module name", mod.Name)
		}
		seen[mod.Name] = true

		if err := m.validateModule(mod); err != nil {
			return fmt.Errorf("module %q: %w", mod.Name, err)
		}
	}
	return nil
}

func (m *Manifest) validateModule(mod *Module) error {
	if mod.Binary != "" {
		if _, ok := m.Binaries[mod.Binary]; !ok {
			return fmt.Errorf("unknown binary %q", mod.Binary)
		}
	} else if _, ok := m.Binaries["default"]; !ok {
		return fmt.Errorf("no binary named and no default binary declared")
	}

	switch mod.Kind {
	case KindMap:
		if mod.UpdatePolicy != "" || mod.ValueType != "" {
			return fmt.Errorf("map modules take no updatePolicy or valueType")
		}
	case KindStore:
		if mod.UpdatePolicy == "" {
			return fmt.Errorf("store modules require an updatePolicy")
		}
		if mod.ValueType == "" {
			return fmt.Errorf("store modules require a valueType")
		}
		if err := checkPolicyValueType(mod.UpdatePolicy, mod.ValueType); err != nil {
			return err
		}
	}

	for j, in := range mod.Inputs {
		if err := m.validateInput(in); err != nil {
			return fmt.Errorf("input %d: %w", j, err)
		}
	}
	return nil
}

func (m *Manifest) validateInput(in Input) error {
	set := 0
	for _, v := range []string{in.Source, in.Map, in.Store} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of source, map or store must be set")
	}
	if in.Mode != "" && in.Store == "" {
		return fmt.Errorf("mode applies to store inputs only")
	}
	if in.Map != "" || in.Store != "" {
		name := in.Map
		if name == "" {
			name = in.Store
		}
		ref := m.ModuleNamed(name)
		if ref == nil {
			return fmt.Errorf("unknown module %q", name)
		}
		if in.Map != "" && ref.Kind != KindMap {
			return fmt.Errorf("module %q is not a map module", name)
		}
		if in.Store != "" && ref.Kind != KindStore {
			return fmt.Errorf("module %q is not a store module", name)
		}
	}
	return nil
}

func checkPolicyValueType(policy, valueType string) error {
	isProto := len(valueType) > 6 && valueType[:6] == "proto:"
	if !isProto && !scalarValueTypes[valueType] {
		return fmt.Errorf("unknown valueType %q", valueType)
	}
	switch policy {
	case PolicyAdd, PolicyMin, PolicyMax:
		if !numericValueTypes[valueType] {
			return fmt.Errorf("policy %q requires a numeric valueType, got %q", policy, valueType)
		}
	case PolicyAppend:
		if valueType != "string" && valueType != "bytes" {
			return fmt.Errorf("policy %q requires valueType string or bytes, got %q", policy, valueType)
		}
	}
	return nil
}

// ModuleNamed returns the module with the given name, or nil.
func (m *Manifest) ModuleNamed(name string) *Module {
	for i := range m.Modules {
		if m.Modules[i].Name == name {
			return &m.Modules[i]
		}
	}
	return nil
}

// BinaryFor resolves a module's wasm file path. Modules without an
// explicit binary use the "default" entry.
func (m *Manifest) BinaryFor(mod *Module) (string, error) {
	name := mod.Binary
	if name == "" {
		name = "default"
	}
	bin, ok := m.Binaries[name]
	if !ok {
		return "", fmt.Errorf("module %q: unknown binary %q", mod.Name, name)
	}
	return bin.File, nil
}

// InputMode returns the effective mode of a store input.
func (in Input) InputMode() string {
	if in.Mode == "" {
		return ModeGet
	}
	return in.Mode
}
