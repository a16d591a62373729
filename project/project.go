// Package project models the host build: the consuming targets that
// generated sources are compiled into and linked with.
package project

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/syssam/odbgen"
)

// Scope of a link dependency.
type Scope string

const (
	Private   Scope = "PRIVATE"
	Public    Scope = "PUBLIC"
	Interface Scope = "INTERFACE"
)

// ParseScope parses a scope name, ignoring case.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToUpper(strings.TrimSpace(s))); sc {
	case Private, Public, Interface:
		return sc, nil
	}
	return "", fmt.Errorf("project: unknown link scope %q", s)
}

// Link is a library a target links against.
type Link struct {
	Library string `json:"library" yaml:"library"`
	Scope   Scope  `json:"scope" yaml:"scope"`
}

// Target is a native build target that may consume generated code.
type Target struct {
	Name string
	// Sources compiled into the target.
	Sources []string
	// IncludeDirs and Definitions form the target's compile configuration.
	// Both are forwarded to the compiler as -I and -D flags.
	IncludeDirs []string
	Definitions []string
	Links       []Link
	// Dependencies are build-graph nodes that must complete before the
	// target compiles.
	Dependencies []string

	configured bool
	generated  []string
}

// Configured reports whether the target was finalized.
func (t *Target) Configured() bool { return t.configured }

// AddGeneratedIncludeDirs adds directories holding generated headers to
// IncludeDirs. They are not part of the compile configuration returned by
// CompileIncludeDirs. A directory the target already had stays part of
// its compile configuration.
func (t *Target) AddGeneratedIncludeDirs(dirs ...string) {
	for _, dir := range dirs {
		if dir != "" && !slices.Contains(t.IncludeDirs, dir) {
			t.IncludeDirs = append(t.IncludeDirs, dir)
			t.generated = append(t.generated, dir)
		}
	}
}

// CompileIncludeDirs returns the include directories the target was
// configured with, excluding those added for generated code.
func (t *Target) CompileIncludeDirs() []string {
	var out []string
	for _, dir := range t.IncludeDirs {
		if !slices.Contains(t.generated, dir) {
			out = append(out, dir)
		}
	}
	return out
}

// Project is an ordered collection of targets.
type Project struct {
	Name string
	// Dir is the source directory; relative paths resolve against it.
	Dir string
	// BuildDir is the binary directory generated files default into.
	BuildDir string
	// CXXStandard is the project-wide default language standard.
	CXXStandard string

	targets []*Target
}

// New returns an empty project rooted at dir.
func New(name, dir, buildDir string) *Project {
	return &Project{Name: name, Dir: dir, BuildDir: buildDir}
}

// AddTarget registers a target. Names must be unique.
func (p *Project) AddTarget(t *Target) error {
	if t == nil || t.Name == "" {
		return odbgen.NewConfigError("Target", nil, "target name cannot be empty")
	}
	if _, ok := p.Target(t.Name); ok {
		return odbgen.NewConfigError("Target", t.Name, "target already defined")
	}
	p.targets = append(p.targets, t)
	return nil
}

// Target returns the named target.
func (p *Project) Target(name string) (*Target, bool) {
	for _, t := range p.targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Targets returns all targets in registration order.
func (p *Project) Targets() []*Target {
	return slices.Clone(p.targets)
}

// Finalize marks the target fully configured. Later mutations fail.
func (p *Project) Finalize(name string) error {
	t, ok := p.Target(name)
	if !ok {
		return odbgen.NewConfigError("Target", name, "unknown target")
	}
	t.configured = true
	return nil
}

// Abs resolves path against the project source directory.
func (p *Project) Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// Mutate applies fn to the named target. It fails when the target is unknown
// or already finalized, because configuration steps that ran after
// finalization would miss the change.
func (p *Project) Mutate(name string, fn func(*Target)) error {
	if err := p.Mutable(name); err != nil {
		return err
	}
	t, _ := p.Target(name)
	fn(t)
	return nil
}

// Mutable reports, as a ConfigError, the first of the named targets that is
// unknown or already finalized.
func (p *Project) Mutable(names ...string) error {
	for _, name := range names {
		t, ok := p.Target(name)
		if !ok {
			return odbgen.NewConfigError("Target", name, "unknown target")
		}
		if t.configured {
			return odbgen.NewConfigError("Target", name, "target is already configured")
		}
	}
	return nil
}

// AppendUnique appends the values not already present in dst.
func AppendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
