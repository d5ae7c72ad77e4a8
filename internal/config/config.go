// Package config loads engine configuration from YAML or TOML files.
//
// The raw document is checked against an embedded CUE schema before it is
// decoded over Default(), so unknown fields and out-of-range enum values
// are reported with their field path instead of being silently ignored.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/rdf"
)

//go:embed schema.cue
var schemaCUE string

// Syntax values.
const (
	SyntaxSPARQL11 = "sparql11"
	SyntaxExtended = "extended"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the complete engine configuration.
type Config struct {
	BaseIRI    string            `yaml:"base_iri" toml:"base_iri"`
	Namespaces map[string]string `yaml:"namespaces" toml:"namespaces"`
	Syntax     string            `yaml:"syntax" toml:"syntax"`

	Query  QueryConfig  `yaml:"query" toml:"query"`
	Update UpdateConfig `yaml:"update" toml:"update"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Stats  StatsConfig  `yaml:"stats" toml:"stats"`
}

type QueryConfig struct {
	Timeout        Duration `yaml:"timeout" toml:"timeout"`
	PartialResults bool     `yaml:"partial_results" toml:"partial_results"`
	// NamedGraphs selects the named graphs of a query without FROM NAMED.
	// Empty selects every graph of the store.
	NamedGraphs []string `yaml:"named_graphs" toml:"named_graphs"`
}

type UpdateConfig struct {
	BestEffort bool `yaml:"best_effort" toml:"best_effort"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type StatsConfig struct {
	Enabled    bool `yaml:"enabled" toml:"enabled"`
	MaxRecords int  `yaml:"max_records" toml:"max_records"`
}

// Duration is a time.Duration written as "30s" in files.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Namespaces: map[string]string{},
		Syntax:     SyntaxSPARQL11,
		Query:      QueryConfig{Timeout: Duration(30 * time.Second)},
		Store:      StoreConfig{Driver: DriverMemory},
		Log:        LogConfig{Level: "info", Format: "text"},
		Stats:      StatsConfig{MaxRecords: 1000},
	}
}

// ValidationError is one problem found in a configuration file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem of one file.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries validation errors.
func IsValidationError(err error) bool {
	var es ValidationErrors
	return errors.As(err, &es)
}

// Load reads the file at path. The format follows the extension: .yaml,
// .yml or .toml. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// ParseYAML validates and decodes a YAML document.
func ParseYAML(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTOML validates and decodes a TOML document.
func ParseTOML(data []byte) (*Config, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate unifies the raw document with the #Config definition.
func validate(raw map[string]any) error {
	if raw == nil {
		return nil
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	err := def.Unify(doc).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		out = append(out, ValidationError{
			Field:   strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = ValidationErrors{{Message: err.Error()}}
	}
	return out
}

// check covers what the schema cannot: glob syntax and the sqlite path.
func (c *Config) check() error {
	var out ValidationErrors
	for i, p := range c.Query.NamedGraphs {
		if _, err := glob.Compile(p); err != nil {
			out = append(out, ValidationError{
				Field:   fmt.Sprintf("query.named_graphs.%d", i),
				Message: err.Error(),
			})
		}
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		out = append(out, ValidationError{Field: "store.path", Message: "required for the sqlite driver"})
	}
	if len(out) > 0 {
		return out
	}
	return nil
}

// ExprSyntax maps the syntax setting onto the parser level.
func (c *Config) ExprSyntax() exprparser.Syntax {
	if c.Syntax == SyntaxExtended {
		return exprparser.Extended
	}
	return exprparser.SPARQL11
}

// NamespaceMap builds the configured prefixes.
func (c *Config) NamespaceMap() *rdf.NamespaceMap {
	ns := rdf.NewNamespaceMap()
	for prefix, iri := range c.Namespaces {
		ns.Set(prefix, iri)
	}
	return ns
}

// SlogLevel parses log.level. Unknown values mean Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GraphMatcher selects named graphs by glob pattern.
type GraphMatcher struct {
	globs []glob.Glob
}

// NewGraphMatcher compiles patterns. No patterns match every graph.
func NewGraphMatcher(patterns ...string) (*GraphMatcher, error) {
	m := &GraphMatcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("named graph pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// MatchesAll reports whether the matcher has no patterns.
func (m *GraphMatcher) MatchesAll() bool { return len(m.globs) == 0 }

// Match reports whether name is selected.
func (m *GraphMatcher) Match(name rdf.IRI) bool {
	if len(m.globs) == 0 {
		return true
	}
	for _, g := range m.globs {
		if g.Match(string(name)) {
			return true
		}
	}
	return false
}

// Select filters names, keeping their order.
func (m *GraphMatcher) Select(names []rdf.IRI) []rdf.IRI {
	out := make([]rdf.IRI, 0, len(names))
	for _, n := range names {
		if m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// GraphMatcher compiles query.named_graphs.
func (c *Config) GraphMatcher() (*GraphMatcher, error) {
	return NewGraphMatcher(c.Query.NamedGraphs...)
}
