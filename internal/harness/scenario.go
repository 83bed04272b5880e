package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/equal1/eq1-pulse/internal/ir"
)

// Scenario is one conformance case: a named program document.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// Program is the program document, written inline as YAML.
	Program yaml.Node `yaml:"program"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("load scenario %s: name is required", path)
	}
	if s.Program.IsZero() {
		return nil, fmt.Errorf("load scenario %s: program is required", path)
	}
	return &s, nil
}

// LoadScenarios reads every scenario under a directory, sorted by name for
// deterministic iteration.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios under %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

// DecodeProgram converts the scenario's inline YAML program to the typed
// tree, through its JSON wire form.
func (s *Scenario) DecodeProgram() (ir.Program, error) {
	var doc any
	if err := s.Program.Decode(&doc); err != nil {
		return ir.Program{}, fmt.Errorf("scenario %s: decode program: %w", s.Name, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return ir.Program{}, fmt.Errorf("scenario %s: encode program: %w", s.Name, err)
	}

	var p ir.Program
	if err := p.UnmarshalJSON(data); err != nil {
		return ir.Program{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return p, nil
}
