// Package load reads an odbgen project description from a YAML file, an
// optional .env file and the environment.
package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/compiler/gen"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/project"
)

// Environment variables overriding the configuration file.
const (
	EnvExecutable = "ODB_EXECUTABLE"
	EnvRoot       = "ODB_ROOT"
	EnvBuildDir   = "ODBGEN_BUILD_DIR"
	EnvWorkers    = "ODBGEN_WORKERS"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "odbgen.yaml"

// DefaultStateFile is the engine state file, relative to the build dir.
const DefaultStateFile = ".odbgen.state"

// Config is the complete description of a project and its generation
// requests.
type Config struct {
	Project  ProjectConfig   `json:"project" yaml:"project"`
	Compiler CompilerConfig  `json:"compiler" yaml:"compiler"`
	Targets  []TargetConfig  `json:"targets" yaml:"targets"`
	Requests []RequestConfig `json:"requests" yaml:"requests"`
	Build    BuildConfig     `json:"build" yaml:"build"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// ProjectConfig describes the host project.
type ProjectConfig struct {
	Name        string `json:"name" yaml:"name"`
	SourceDir   string `json:"source_dir" yaml:"source_dir"`
	BuildDir    string `json:"build_dir" yaml:"build_dir"`
	CXXStandard string `json:"cxx_standard" yaml:"cxx_standard"`
}

// CompilerConfig controls discovery of the compiler.
type CompilerConfig struct {
	Executable         string   `json:"executable" yaml:"executable"`
	Hints              []string `json:"hints" yaml:"hints"`
	Components         []string `json:"components" yaml:"components"`
	RequiredComponents []string `json:"required_components" yaml:"required_components"`
	Required           bool     `json:"required" yaml:"required"`
}

// TargetConfig describes a consuming target.
type TargetConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Sources     []string `json:"sources" yaml:"sources"`
	IncludeDirs []string `json:"include_dirs" yaml:"include_dirs"`
	Definitions []string `json:"definitions" yaml:"definitions"`
}

// RequestConfig is one generation request.
type RequestConfig struct {
	Targets          []string `json:"targets" yaml:"targets"`
	Sources          []string `json:"sources" yaml:"sources"`
	DB               string   `json:"db" yaml:"db"`
	Databases        []string `json:"databases" yaml:"databases"`
	MultiDatabase    string   `json:"multi_database" yaml:"multi_database"`
	AtOnce           bool     `json:"at_once" yaml:"at_once"`
	GenerateQuery    bool     `json:"generate_query" yaml:"generate_query"`
	GenerateSession  bool     `json:"generate_session" yaml:"generate_session"`
	GenerateSchema   bool     `json:"generate_schema" yaml:"generate_schema"`
	GeneratePrepared bool     `json:"generate_prepared" yaml:"generate_prepared"`
	SchemaFormat     string   `json:"schema_format" yaml:"schema_format"`
	Standard         string   `json:"standard" yaml:"standard"`
	Profiles         []string `json:"profiles" yaml:"profiles"`
	TablePrefix      string   `json:"table_prefix" yaml:"table_prefix"`
	Changelog        string   `json:"changelog" yaml:"changelog"`
	ChangelogDir     string   `json:"changelog_dir" yaml:"changelog_dir"`
	OutputDir        string   `json:"output_dir" yaml:"output_dir"`
	HeaderSuffix     string   `json:"hxx_suffix" yaml:"hxx_suffix"`
	InlineSuffix     string   `json:"ixx_suffix" yaml:"ixx_suffix"`
	SourceSuffix     string   `json:"cxx_suffix" yaml:"cxx_suffix"`
	Includes         []string `json:"includes" yaml:"includes"`
	Defines          []string `json:"defines" yaml:"defines"`
	Options          []string `json:"options" yaml:"options"`
	NoAutoLink       bool     `json:"no_auto_link" yaml:"no_auto_link"`
	LinkScope        string   `json:"link_scope" yaml:"link_scope"`
}

// BuildConfig controls the reference engine.
type BuildConfig struct {
	Workers   int    `json:"workers" yaml:"workers"`
	StateFile string `json:"state_file" yaml:"state_file"`
}

// DefaultConfig returns a configuration rooted at the working directory.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			SourceDir: ".",
			BuildDir:  "build",
		},
		Compiler: CompilerConfig{Required: true},
	}
}

// Load reads the .env file next to path, if any, then path itself, then
// the environment. The result is resolved and validated.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Variables already set are kept; missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromFile reads a YAML configuration. Unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes a YAML configuration on top of DefaultConfig. Relative
// paths resolve against the working directory.
func Parse(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment overrides. ODB_ROOT is searched before
// the hints of the file.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvExecutable); v != "" {
		cfg.Compiler.Executable = v
	}
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.Compiler.Hints = append([]string{v}, cfg.Compiler.Hints...)
	}
	if v := os.Getenv(EnvBuildDir); v != "" {
		cfg.Project.BuildDir = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return odbgen.NewConfigError(EnvWorkers, v, "must be a non-negative integer")
		}
		cfg.Build.Workers = n
	}
	return nil
}

// Resolve makes paths absolute and fills in derived defaults.
func (c *Config) Resolve() {
	if c.dir == "" {
		c.dir, _ = os.Getwd()
	}
	c.Project.SourceDir = c.abs(c.Project.SourceDir)
	c.Project.BuildDir = c.abs(c.Project.BuildDir)
	if c.Project.Name == "" {
		c.Project.Name = filepath.Base(c.Project.SourceDir)
	}
	if c.Compiler.Executable != "" && filepath.Base(c.Compiler.Executable) != c.Compiler.Executable {
		c.Compiler.Executable = c.abs(c.Compiler.Executable)
	}
	for i, h := range c.Compiler.Hints {
		c.Compiler.Hints[i] = c.abs(h)
	}
	if c.Build.StateFile == "" {
		c.Build.StateFile = filepath.Join(c.Project.BuildDir, DefaultStateFile)
	} else {
		c.Build.StateFile = c.abs(c.Build.StateFile)
	}
}

func (c *Config) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	targets := make(map[string]bool)
	for i, t := range c.Targets {
		switch {
		case t.Name == "":
			errs = append(errs, odbgen.NewConfigError(fmt.Sprintf("targets[%d].name", i), nil, "is required"))
		case targets[t.Name]:
			errs = append(errs, odbgen.NewConfigError(fmt.Sprintf("targets[%d].name", i), t.Name, "duplicate target"))
		}
		targets[t.Name] = true
	}
	if len(c.Requests) == 0 {
		errs = append(errs, odbgen.NewConfigError("requests", nil, "at least one request is required"))
	}
	for i, r := range c.Requests {
		field := func(name string) string { return fmt.Sprintf("requests[%d].%s", i, name) }
		if len(r.Targets) == 0 {
			errs = append(errs, odbgen.NewConfigError(field("targets"), nil, "at least one target is required"))
		}
		for _, t := range r.Targets {
			if !targets[t] {
				errs = append(errs, odbgen.NewConfigError(field("targets"), t, "unknown target"))
			}
		}
		if len(r.Sources) == 0 {
			errs = append(errs, odbgen.NewConfigError(field("sources"), nil, "at least one source is required"))
		}
		if r.DB == "" && len(r.Databases) == 0 {
			errs = append(errs, odbgen.NewConfigError(field("db"), nil, "db or databases is required"))
		}
		if r.MultiDatabase != "" {
			if _, err := gen.ParseMode(r.MultiDatabase); err != nil {
				errs = append(errs, odbgen.NewConfigError(field("multi_database"), r.MultiDatabase, "use dynamic or static"))
			}
		}
		if r.SchemaFormat != "" {
			if _, err := gen.ParseSchemaFormat(r.SchemaFormat); err != nil {
				errs = append(errs, err)
			}
		}
		if r.LinkScope != "" {
			if _, err := project.ParseScope(r.LinkScope); err != nil {
				errs = append(errs, odbgen.NewConfigError(field("link_scope"), r.LinkScope, "use private, public or interface"))
			}
		}
	}
	if c.Build.Workers < 0 {
		errs = append(errs, odbgen.NewConfigError("build.workers", c.Build.Workers, "must not be negative"))
	}
	return errors.Join(errs...)
}

// LocateOptions returns the discovery options of the compiler section.
func (c *Config) LocateOptions() locate.Options {
	return locate.Options{
		Executable:         c.Compiler.Executable,
		Hints:              c.Compiler.Hints,
		Components:         c.Compiler.Components,
		RequiredComponents: c.Compiler.RequiredComponents,
		Required:           c.Compiler.Required,
	}
}

// NewProject builds the host project with its targets.
func (c *Config) NewProject() (*project.Project, error) {
	p := project.New(c.Project.Name, c.Project.SourceDir, c.Project.BuildDir)
	p.CXXStandard = c.Project.CXXStandard
	for _, t := range c.Targets {
		target := &project.Target{Name: t.Name, Definitions: t.Definitions}
		for _, src := range t.Sources {
			target.Sources = append(target.Sources, p.Abs(src))
		}
		for _, inc := range t.IncludeDirs {
			target.IncludeDirs = append(target.IncludeDirs, p.Abs(inc))
		}
		if err := p.AddTarget(target); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// GenOptions translates the request into generation options. Relative
// paths resolve against base.
func (r RequestConfig) GenOptions(base string) []gen.Option {
	opts := []gen.Option{
		gen.WithBaseDir(base),
		gen.WithTargets(r.Targets...),
		gen.WithSources(r.Sources...),
		gen.WithSuffixes(r.HeaderSuffix, r.InlineSuffix, r.SourceSuffix),
		gen.WithStandard(r.Standard),
		gen.WithProfiles(r.Profiles...),
		gen.WithTablePrefix(r.TablePrefix),
		gen.WithChangelog(r.Changelog),
		gen.WithChangelogDir(r.ChangelogDir),
		gen.WithAtOnce(r.AtOnce),
		gen.WithMultiDatabase(r.MultiDatabase),
		gen.WithIncludes(r.Includes...),
		gen.WithDefines(r.Defines...),
		gen.WithOptions(r.Options...),
	}
	if r.DB != "" {
		opts = append(opts, gen.WithDB(r.DB))
	}
	if len(r.Databases) > 0 {
		opts = append(opts, gen.WithDatabases(r.Databases...))
	}
	if r.OutputDir != "" {
		opts = append(opts, gen.WithOutputDir(r.OutputDir))
	}
	if r.SchemaFormat != "" {
		opts = append(opts, gen.WithSchemaFormat(r.SchemaFormat))
	}
	if r.NoAutoLink {
		opts = append(opts, gen.WithNoAutoLink())
	}
	if r.LinkScope != "" {
		opts = append(opts, gen.WithLinkScope(r.LinkScope))
	}
	toggles := []struct {
		on bool
		f  gen.Feature
	}{
		{r.GenerateQuery, gen.FeatureQuery},
		{r.GenerateSession, gen.FeatureSession},
		{r.GenerateSchema, gen.FeatureSchema},
		{r.GeneratePrepared, gen.FeaturePrepared},
	}
	for _, t := range toggles {
		if t.on {
			opts = append(opts, gen.WithFeatures(t.f))
		}
	}
	return opts
}

// NewRequests builds the generation requests of the configuration.
func (c *Config) NewRequests() ([]*gen.Request, error) {
	reqs := make([]*gen.Request, 0, len(c.Requests))
	for i, rc := range c.Requests {
		req, err := gen.NewRequest(rc.GenOptions(c.Project.SourceDir)...)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
