package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/rdf"
)

// Scenario is one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Prefixes are declared for every step and for expected terms.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`

	// Data lists fixture files seeded before the first step.
	Data []string `yaml:"data,omitempty"`

	Config *ScenarioConfig `yaml:"config,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Dir is the scenario file's directory. LOAD resolves file: sources
	// against it.
	Dir string `yaml:"-"`
}

// ScenarioConfig overrides engine settings for one scenario.
type ScenarioConfig struct {
	Syntax         string   `yaml:"syntax,omitempty"`
	BestEffort     bool     `yaml:"best_effort,omitempty"`
	PartialResults bool     `yaml:"partial_results,omitempty"`
	Timeout        string   `yaml:"timeout,omitempty"`
	NamedGraphs    []string `yaml:"named_graphs,omitempty"`

	// Driver selects the store: memory (default) or sqlite in a temporary
	// directory.
	Driver string `yaml:"driver,omitempty"`
}

// Step runs exactly one of Query or Update.
type Step struct {
	Query  string  `yaml:"query,omitempty"`
	Update string  `yaml:"update,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists what a step must produce. Unset fields are not checked.
type Expect struct {
	// Error is the expected error code, such as GRAPH_EXISTS or PARSE_ERROR.
	Error string `yaml:"error,omitempty"`

	Applied *int `yaml:"applied,omitempty"`
	Skipped *int `yaml:"skipped,omitempty"`

	// Count is the number of solutions or triples.
	Count   *int  `yaml:"count,omitempty"`
	Boolean *bool `yaml:"boolean,omitempty"`
	Partial *bool `yaml:"partial,omitempty"`

	// Rows must equal the solutions in order. Each row maps variables to
	// terms; a variable missing from the row must be unbound.
	Rows []map[string]string `yaml:"rows,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	Type string `yaml:"type"`

	// Graph names the graph; empty is the default graph.
	Graph string `yaml:"graph,omitempty"`

	Triple []string `yaml:"triple,omitempty"`

	Count int `yaml:"count,omitempty"`

	Query   string `yaml:"query,omitempty"`
	Boolean bool   `yaml:"boolean,omitempty"`
}

// Assertion types.
const (
	AssertGraphSize     = "graph_size"
	AssertGraphContains = "graph_contains"
	AssertGraphExcludes = "graph_excludes"
	AssertAsk           = "ask"
)

// LoadScenario reads and validates a scenario file. Data paths are
// resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes scenario YAML, rejecting unknown fields. Relative
// data paths are joined to dir.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s.Dir = dir
	for i, p := range s.Data {
		if !filepath.IsAbs(p) && dir != "" {
			s.Data[i] = filepath.Join(dir, p)
		}
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarios loads every *.yaml file of dir in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.Data {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("data file not found: %s", p)
		}
	}

	if c := s.Config; c != nil {
		if c.Timeout != "" {
			if _, err := time.ParseDuration(c.Timeout); err != nil {
				return fmt.Errorf("config.timeout: %w", err)
			}
		}
		switch c.Syntax {
		case "", config.SyntaxSPARQL11, config.SyntaxExtended:
		default:
			return fmt.Errorf("config.syntax: unknown syntax %q", c.Syntax)
		}
		switch c.Driver {
		case "", config.DriverMemory, config.DriverSQLite:
		default:
			return fmt.Errorf("config.driver: unknown driver %q", c.Driver)
		}
	}

	for i, step := range s.Steps {
		if (step.Query == "") == (step.Update == "") {
			return fmt.Errorf("steps[%d]: exactly one of query or update is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertGraphSize:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for graph_size", index)
		}
	case AssertGraphContains, AssertGraphExcludes:
		if len(a.Triple) != 3 {
			return fmt.Errorf("assertions[%d]: triple must have 3 terms for %s", index, a.Type)
		}
	case AssertAsk:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for ask", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// EngineConfig builds the engine configuration of the scenario.
func (s *Scenario) EngineConfig() *config.Config {
	cfg := config.Default()
	for prefix, iri := range s.Prefixes {
		cfg.Namespaces[prefix] = iri
	}
	c := s.Config
	if c == nil {
		return cfg
	}
	if c.Syntax != "" {
		cfg.Syntax = c.Syntax
	}
	cfg.Update.BestEffort = c.BestEffort
	cfg.Query.PartialResults = c.PartialResults
	cfg.Query.NamedGraphs = c.NamedGraphs
	if d, err := time.ParseDuration(c.Timeout); err == nil {
		cfg.Query.Timeout = config.Duration(d)
	}
	if c.Driver != "" {
		cfg.Store.Driver = c.Driver
	}
	return cfg
}

// namespaces resolves expected terms.
func (s *Scenario) namespaces() *rdf.NamespaceMap {
	ns := rdf.NewNamespaceMap()
	for prefix, iri := range s.Prefixes {
		ns.Set(prefix, iri)
	}
	return ns
}
