package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nmlc/internal/engine"
	"github.com/roach88/nmlc/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the inline CUE source.
	Source string `yaml:"source,omitempty"`

	// SourceFile is a CUE file, relative to the scenario file. It is read
	// into Source when the scenario is loaded.
	SourceFile string `yaml:"source_file,omitempty"`

	// TempSlots limits the temporary registers; zero means the default.
	TempSlots int `yaml:"temp_slots,omitempty"`

	// Sinks is the number of recording sinks next to the NFO sink; zero
	// means one.
	Sinks int `yaml:"sinks,omitempty"`

	// Expect lists what the run must produce.
	Expect Expectation `yaml:"expect"`
}

// Expectation is checked against the run result. Unset fields are not
// checked.
type Expectation struct {
	Status        string   `yaml:"status"`
	Length        *int     `yaml:"length,omitempty"`
	Header        *bool    `yaml:"header,omitempty"`
	Kinds         []string `yaml:"kinds,omitempty"`
	Labels        []string `yaml:"labels,omitempty"`
	ErrorContains string   `yaml:"error_contains,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SourceFile != "" {
		if scenario.Source != "" {
			return nil, fmt.Errorf("invalid scenario: source and source_file are mutually exclusive")
		}
		srcPath := scenario.SourceFile
		if !filepath.IsAbs(srcPath) {
			srcPath = filepath.Join(filepath.Dir(path), srcPath)
		}
		src, err := os.ReadFile(srcPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: source file: %w", err)
		}
		scenario.Source = string(src)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field validation.
// Source files are not resolved and required fields are not checked.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name. Names
// must be unique.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Filter keeps the scenarios whose name contains substr.
func Filter(scenarios []*Scenario, substr string) []*Scenario {
	if substr == "" {
		return scenarios
	}
	var out []*Scenario
	for _, s := range scenarios {
		if strings.Contains(s.Name, substr) {
			out = append(out, s)
		}
	}
	return out
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain path separators or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.TempSlots < 0 || s.TempSlots > ir.MaxTempSlots {
		return fmt.Errorf("temp_slots must be in [0, %d]", ir.MaxTempSlots)
	}
	if s.Sinks < 0 {
		return fmt.Errorf("sinks must be non-negative")
	}

	status, err := engine.ParseStatus(s.Expect.Status)
	if err != nil {
		return fmt.Errorf("expect.status: %w", err)
	}
	if strings.TrimSpace(s.Source) == "" && status != engine.StatusEmptyInput {
		return fmt.Errorf("source or source_file is required")
	}
	for i, k := range s.Expect.Kinds {
		if _, err := ir.ParseKind(k); err != nil {
			return fmt.Errorf("expect.kinds[%d]: %w", i, err)
		}
	}
	if s.Expect.Length != nil && *s.Expect.Length < 0 {
		return fmt.Errorf("expect.length must be non-negative")
	}
	return nil
}
