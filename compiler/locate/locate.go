// Package locate discovers the ODB compiler executable, its version and the
// runtime libraries installed next to it.
package locate

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/dialect"
)

// CompilerName is the executable searched for.
const CompilerName = "odb"

// Component is the discovery state of one backend or profile runtime.
type Component struct {
	Name string
	// DisplayName is the human readable name, empty for unknown components.
	DisplayName string
	Found       bool
	Library     dialect.Library
	LibraryPath string
	IncludeDir  string
}

// Result is the outcome of a discovery run. It is passed explicitly into
// every generation request instead of living in process-wide state.
type Result struct {
	Executable string
	Version    string
	IncludeDir string
	// Library is the path of the core runtime library.
	Library    string
	Components map[string]Component
}

// Found reports whether the compiler executable was located.
func (r *Result) Found() bool {
	return r != nil && r.Executable != ""
}

// ComponentFound reports whether the named backend or profile was located.
func (r *Result) ComponentFound(name string) bool {
	if r == nil {
		return false
	}
	c, ok := r.Components[dialect.Normalize(name)]
	return ok && c.Found
}

// Available reports whether the runtime library lib is installed.
func (r *Result) Available(lib dialect.Library) bool {
	if r == nil {
		return false
	}
	if lib == dialect.Core {
		return r.Library != ""
	}
	for _, c := range r.Components {
		if c.Found && c.Library == lib {
			return true
		}
	}
	return false
}

// Options controls a discovery run.
type Options struct {
	// Executable is an explicit compiler path that takes precedence.
	Executable string
	// Hints are installation prefixes searched before $PATH.
	Hints []string
	// Components are backends/profiles to probe. Missing ones only warn.
	Components []string
	// RequiredComponents fail discovery when missing.
	RequiredComponents []string
	// Required fails discovery when the compiler itself is missing.
	Required bool
}

func (o Options) key() string {
	var b strings.Builder
	b.WriteString(o.Executable)
	for _, list := range [][]string{o.Hints, o.Components, o.RequiredComponents} {
		b.WriteByte(0)
		b.WriteString(strings.Join(list, "\x1f"))
	}
	if o.Required {
		b.WriteString("\x00required")
	}
	return b.String()
}

// Locator performs discovery. The zero value is not usable; use New.
type Locator struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	exists   func(string) bool
	cache    *lru.Cache[string, *Result]
	logger   *slog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithLookPath replaces the $PATH lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(l *Locator) {
		l.lookPath = fn
	}
}

// WithRunner replaces the subprocess runner used to query the version.
func WithRunner(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) Option {
	return func(l *Locator) {
		l.run = fn
	}
}

// WithFileProbe replaces the file existence check.
func WithFileProbe(fn func(string) bool) Option {
	return func(l *Locator) {
		l.exists = fn
	}
}

// WithLogger sets the logger for warnings about missing components.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithCacheSize sets the number of cached discovery results.
func WithCacheSize(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.cache, _ = lru.New[string, *Result](n)
		}
	}
}

// New returns a Locator using the host $PATH and filesystem.
func New(opts ...Option) *Locator {
	l := &Locator{
		lookPath: exec.LookPath,
		run:      runCommand,
		exists:   fileExists,
		logger:   slog.Default(),
	}
	l.cache, _ = lru.New[string, *Result](16)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Locate runs discovery. Successful results are cached per option set.
func (l *Locator) Locate(ctx context.Context, o Options) (*Result, error) {
	key := o.key()
	if r, ok := l.cache.Get(key); ok {
		return r, nil
	}

	exe, searched := l.findExecutable(o)
	if exe == "" {
		if o.Required {
			return nil, odbgen.NewDiscoveryError(CompilerName, "compiler executable not found", searched...)
		}
		l.logger.Warn("odb compiler not found", "searched", searched)
		return &Result{Components: map[string]Component{}}, nil
	}

	r := &Result{
		Executable: exe,
		Components: make(map[string]Component),
	}
	out, err := l.run(ctx, exe, "--version")
	if err != nil {
		l.logger.Warn("cannot query odb version", "executable", exe, "error", err)
	} else {
		r.Version = ParseVersion(string(out))
	}

	roots := l.roots(o, exe)
	r.IncludeDir = l.findInclude(roots, dialect.CoreHeader)
	r.Library = l.findLibrary(roots, dialect.Core)
	if r.IncludeDir == "" || r.Library == "" {
		l.logger.Warn("odb core runtime not found", "roots", roots)
	}

	names := slices.Concat(o.Components, o.RequiredComponents)
	for _, name := range names {
		norm := dialect.Normalize(name)
		if _, done := r.Components[norm]; done {
			continue
		}
		c, ok := dialect.LookupComponent(norm)
		if !ok {
			l.logger.Warn("unknown odb component", "component", name)
			r.Components[norm] = Component{Name: norm}
			continue
		}
		comp := Component{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Library:     c.Library,
			IncludeDir:  l.findInclude(roots, c.Header),
			LibraryPath: l.findLibrary(roots, c.Library),
		}
		comp.Found = comp.IncludeDir != "" && comp.LibraryPath != ""
		if !comp.Found {
			l.logger.Warn("odb component not found", "component", c.Name, "library", c.Library)
		}
		r.Components[norm] = comp
	}

	for _, name := range o.RequiredComponents {
		if !r.ComponentFound(name) {
			return nil, odbgen.NewDiscoveryError(name, "required component not found", roots...)
		}
	}

	l.cache.Add(key, r)
	l.logger.Debug("located odb compiler", "executable", r.Executable, "version", r.Version)
	return r, nil
}

func (l *Locator) findExecutable(o Options) (string, []string) {
	name := CompilerName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	var searched []string
	if o.Executable != "" {
		searched = append(searched, o.Executable)
		if l.exists(o.Executable) {
			return o.Executable, searched
		}
	}
	for _, h := range o.Hints {
		candidate := filepath.Join(h, "bin", name)
		searched = append(searched, candidate)
		if l.exists(candidate) {
			return candidate, searched
		}
	}
	searched = append(searched, "$PATH")
	if p, err := l.lookPath(name); err == nil {
		return p, searched
	}
	return "", searched
}

// roots returns the installation prefixes to probe: the hints followed by
// the prefix above the executable's bin directory.
func (l *Locator) roots(o Options, exe string) []string {
	roots := slices.Clone(o.Hints)
	if dir := filepath.Dir(exe); filepath.Base(dir) == "bin" {
		prefix := filepath.Dir(dir)
		if !slices.Contains(roots, prefix) {
			roots = append(roots, prefix)
		}
	}
	return roots
}

func (l *Locator) findInclude(roots []string, header string) string {
	for _, root := range roots {
		dir := filepath.Join(root, "include")
		if l.exists(filepath.Join(dir, filepath.FromSlash(header))) {
			return dir
		}
	}
	return ""
}

func (l *Locator) findLibrary(roots []string, lib dialect.Library) string {
	base := string(lib)
	names := []string{base + ".so", base + ".a", base + ".dylib", strings.TrimPrefix(base, "lib") + ".lib"}
	for _, root := range roots {
		for _, libdir := range []string{"lib", "lib64"} {
			for _, n := range names {
				p := filepath.Join(root, libdir, n)
				if l.exists(p) {
					return p
				}
			}
		}
	}
	return ""
}

var versionRE = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?`)

// ParseVersion extracts the version from the first line of `odb --version`.
func ParseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	return versionRE.FindString(line)
}
