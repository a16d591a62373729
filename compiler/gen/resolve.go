package gen

import (
	"cmp"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/dialect"
	"github.com/syssam/odbgen/project"
)

// DefaultOutputSubdir is created under the project build directory when
// the request names no output directory.
const DefaultOutputSubdir = "odb_gen"

// Resolved is a validated and normalized generation request. It is derived
// once by Resolve and must not be modified afterwards.
type Resolved struct {
	Executable string
	Targets    []string
	// Sources are absolute, cleaned and deduplicated.
	Sources   []string
	Databases []dialect.Database
	Profiles  []dialect.Profile
	// Standard is the canonical --std token, empty when none applies.
	Standard     string
	Mode         Mode
	Features     []Feature
	SchemaFormat SchemaFormat
	OutputDir    string
	HeaderSuffix string
	InlineSuffix string
	SourceSuffix string
	TablePrefix  string
	Changelog    string
	ChangelogDir string
	AtOnce       bool
	Includes     []string
	Defines      []string
	Options      []string
	NoAutoLink   bool
	LinkScope    project.Scope

	logger *slog.Logger
}

// Logger returns the logger of the request, or slog.Default.
func (r *Resolved) Logger() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// FeatureEnabled reports whether the toggle f is enabled.
func (r *Resolved) FeatureEnabled(f Feature) bool {
	return slices.ContainsFunc(r.Features, func(o Feature) bool { return o.Name == f.Name })
}

// Backends returns the resolved databases without "common".
func (r *Resolved) Backends() []dialect.Database {
	var out []dialect.Database
	for _, d := range r.Databases {
		if !d.IsCommon() {
			out = append(out, d)
		}
	}
	return out
}

// Resolve validates req against the project and the discovery result and
// returns its normalized form. It has no side effects.
func Resolve(req *Request, p *project.Project, d *locate.Result) (*Resolved, error) {
	if req == nil {
		return nil, odbgen.NewValidationError("request", nil, "request cannot be nil")
	}
	if len(req.Targets) == 0 {
		return nil, odbgen.NewValidationError("TARGETS", nil, "at least one target is required")
	}
	if len(req.Sources) == 0 {
		return nil, odbgen.NewValidationError("SOURCES", nil, "at least one source is required")
	}
	if req.DB == "" && len(req.Databases) == 0 {
		return nil, odbgen.NewValidationError("DB", nil, "DB or DATABASES is required")
	}
	if p == nil {
		return nil, odbgen.NewValidationError("project", nil, "project cannot be nil")
	}
	var targets []string
	for _, name := range req.Targets {
		t, ok := p.Target(name)
		if !ok {
			return nil, odbgen.NewValidationError("TARGETS", name, "target does not exist")
		}
		if t.Configured() {
			return nil, odbgen.NewValidationError("TARGETS", name, "target is already configured")
		}
		targets = project.AppendUnique(targets, name)
	}
	if !d.Found() {
		return nil, &odbgen.ValidationError{
			Field:   "compiler",
			Message: "the odb compiler was not located",
			Cause:   odbgen.ErrDiscovery,
		}
	}

	base := req.BaseDir
	if base == "" {
		base = p.Dir
	}
	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return filepath.Clean(path)
		}
		return filepath.Join(base, path)
	}

	r := &Resolved{
		Executable:   d.Executable,
		Targets:      targets,
		TablePrefix:  req.TablePrefix,
		AtOnce:       req.AtOnce,
		Defines:      slices.Clone(req.Defines),
		Options:      slices.Clone(req.Options),
		NoAutoLink:   req.NoAutoLink,
		LinkScope:    project.Private,
		logger:       req.Logger,
		HeaderSuffix: cmp.Or(req.HeaderSuffix, DefaultHeaderSuffix),
		InlineSuffix: cmp.Or(req.InlineSuffix, DefaultInlineSuffix),
		SourceSuffix: cmp.Or(req.SourceSuffix, DefaultSourceSuffix),
		Features:     canonicalFeatures(req.Features),
	}

	for _, src := range req.Sources {
		path := abs(src)
		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			return nil, &odbgen.ValidationError{Field: "SOURCES", Value: src, Message: "source file does not exist", Cause: err}
		}
		r.Sources = project.AppendUnique(r.Sources, path)
	}

	dbs, err := resolveDatabases(req)
	if err != nil {
		return nil, err
	}
	r.Databases = dbs

	for _, name := range req.Profiles {
		prof, err := dialect.ParseProfile(name)
		if err != nil {
			return nil, &odbgen.ValidationError{Field: "PROFILES", Value: name, Message: "unknown profile", Cause: err}
		}
		if !slices.Contains(r.Profiles, prof) {
			r.Profiles = append(r.Profiles, prof)
		}
	}

	r.Standard = NormalizeStandard(req.Standard)
	if r.Standard == "" {
		r.Standard = NormalizeStandard(p.CXXStandard)
	}

	format := req.SchemaFormat
	if format == "" {
		format = DefaultSchemaFormat
	}
	if r.SchemaFormat, err = ParseSchemaFormat(string(format)); err != nil {
		return nil, &odbgen.ValidationError{Field: "SCHEMA_FORMAT", Value: format, Message: "unknown schema format", Cause: err}
	}

	if r.Mode, err = InferMode(req.MultiDatabase, r.Databases); err != nil {
		return nil, err
	}

	switch out := req.OutputDir; {
	case out == "":
		r.OutputDir = filepath.Join(cmp.Or(p.BuildDir, base), DefaultOutputSubdir)
	case filepath.IsAbs(out):
		r.OutputDir = filepath.Clean(out)
	default:
		r.OutputDir = filepath.Join(cmp.Or(p.BuildDir, base), out)
	}
	if req.Changelog != "" {
		r.Changelog = abs(req.Changelog)
	}
	r.ChangelogDir = r.OutputDir
	if req.ChangelogDir != "" {
		r.ChangelogDir = abs(req.ChangelogDir)
	}
	if req.LinkScope != "" {
		if r.LinkScope, err = project.ParseScope(req.LinkScope); err != nil {
			return nil, &odbgen.ValidationError{Field: "LINK_SCOPE", Value: req.LinkScope, Message: "unknown link scope", Cause: err}
		}
	}
	for _, inc := range req.Includes {
		r.Includes = project.AppendUnique(r.Includes, abs(inc))
	}
	return r, nil
}

// resolveDatabases parses and deduplicates the database selection. The
// multi-value form always gets "common" appended; the singular form alone
// does not.
func resolveDatabases(req *Request) ([]dialect.Database, error) {
	var tokens []string
	if req.DB != "" {
		tokens = append(tokens, req.DB)
	}
	tokens = append(tokens, req.Databases...)
	if len(req.Databases) > 0 {
		tokens = append(tokens, dialect.Common.String())
	}
	var dbs []dialect.Database
	for _, tok := range tokens {
		db, err := dialect.ParseDatabase(tok)
		if err != nil {
			field := "DATABASES"
			if tok == req.DB {
				field = "DB"
			}
			return nil, &odbgen.ValidationError{Field: field, Value: tok, Message: "unknown database", Cause: err}
		}
		if !slices.Contains(dbs, db) {
			dbs = append(dbs, db)
		}
	}
	return dbs, nil
}

// NormalizeStandard rewrites a digits-only standard to its c++ form.
func NormalizeStandard(std string) string {
	std = strings.TrimSpace(std)
	if std != "" && strings.Trim(std, "0123456789") == "" {
		return "c++" + std
	}
	return std
}
