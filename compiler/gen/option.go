package gen

import (
	"errors"
	"log/slog"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/project"
)

// Default file suffixes and schema format used by the compiler.
const (
	DefaultHeaderSuffix = ".hxx"
	DefaultInlineSuffix = ".ixx"
	DefaultSourceSuffix = ".cxx"
	DefaultSchemaFormat = SchemaSQL
)

// Request is a generation request for one or more consuming targets.
// Build it with NewRequest; Resolve validates and normalizes it.
type Request struct {
	// Targets consuming the generated code.
	Targets []string
	// Sources are the annotated model headers.
	Sources []string
	// DB is the singular database selection. No implicit "common" is added.
	DB string
	// Databases is the multi-value database selection. "common" is always
	// added to it.
	Databases []string
	// OutputDir receives the generated files.
	OutputDir    string
	HeaderSuffix string
	InlineSuffix string
	SourceSuffix string
	// Standard is the C++ standard. A bare number such as "17" means "c++17".
	Standard string
	Profiles []string
	// Features are the enabled generation toggles.
	Features     []Feature
	SchemaFormat SchemaFormat
	TablePrefix  string
	Changelog    string
	ChangelogDir string
	// AtOnce batches all sources into a single compiler invocation.
	AtOnce bool
	// MultiDatabase overrides the inferred multi-database mode.
	MultiDatabase string
	Includes      []string
	Defines       []string
	// Options are passed to the compiler verbatim.
	Options []string
	// NoAutoLink suppresses attaching the runtime libraries to the targets.
	NoAutoLink bool
	// LinkScope of the attached runtime libraries. Defaults to PRIVATE.
	LinkScope string
	// Logger receives debug output while the request is resolved and
	// planned. Defaults to slog.Default.
	Logger *slog.Logger
	// BaseDir resolves relative source, include and changelog paths.
	// Defaults to the project source directory.
	BaseDir string
}

// Option configures a generation request.
type Option func(*Request) error

// WithTargets adds consuming targets.
func WithTargets(targets ...string) Option {
	return func(r *Request) error {
		for _, t := range targets {
			if t == "" {
				return odbgen.NewConfigError("Targets", nil, "target name cannot be empty")
			}
		}
		r.Targets = append(r.Targets, targets...)
		return nil
	}
}

// WithSources adds model headers to compile.
func WithSources(sources ...string) Option {
	return func(r *Request) error {
		for _, s := range sources {
			if s == "" {
				return odbgen.NewConfigError("Sources", nil, "source path cannot be empty")
			}
		}
		r.Sources = append(r.Sources, sources...)
		return nil
	}
}

// WithDB selects a single database without the implicit "common" backend.
func WithDB(db string) Option {
	return func(r *Request) error {
		if db == "" {
			return odbgen.NewConfigError("DB", nil, "database cannot be empty")
		}
		r.DB = db
		return nil
	}
}

// WithDatabases selects databases in multi-value form.
func WithDatabases(dbs ...string) Option {
	return func(r *Request) error {
		if len(dbs) == 0 {
			return odbgen.NewConfigError("Databases", nil, "at least one database is required")
		}
		r.Databases = append(r.Databases, dbs...)
		return nil
	}
}

// WithOutputDir sets the directory generated files are written to.
func WithOutputDir(dir string) Option {
	return func(r *Request) error {
		if dir == "" {
			return odbgen.NewConfigError("OutputDir", nil, "output directory cannot be empty")
		}
		r.OutputDir = dir
		return nil
	}
}

// WithSuffixes sets the header, inline and source suffixes.
// Empty values keep the current suffix.
func WithSuffixes(header, inline, source string) Option {
	return func(r *Request) error {
		if header != "" {
			r.HeaderSuffix = header
		}
		if inline != "" {
			r.InlineSuffix = inline
		}
		if source != "" {
			r.SourceSuffix = source
		}
		return nil
	}
}

// WithStandard sets the C++ standard.
func WithStandard(std string) Option {
	return func(r *Request) error {
		r.Standard = std
		return nil
	}
}

// WithProfiles enables profiles such as "boost" or "qt".
func WithProfiles(profiles ...string) Option {
	return func(r *Request) error {
		r.Profiles = append(r.Profiles, profiles...)
		return nil
	}
}

// WithFeatures enables generation toggles.
func WithFeatures(features ...Feature) Option {
	return func(r *Request) error {
		r.Features = append(r.Features, features...)
		return nil
	}
}

// WithSchemaFormat sets the schema format used with FeatureSchema.
func WithSchemaFormat(format string) Option {
	return func(r *Request) error {
		f, err := ParseSchemaFormat(format)
		if err != nil {
			return err
		}
		r.SchemaFormat = f
		return nil
	}
}

// WithTablePrefix sets the table name prefix.
func WithTablePrefix(prefix string) Option {
	return func(r *Request) error {
		r.TablePrefix = prefix
		return nil
	}
}

// WithChangelog sets an explicit changelog file.
func WithChangelog(file string) Option {
	return func(r *Request) error {
		r.Changelog = file
		return nil
	}
}

// WithChangelogDir sets the changelog directory.
func WithChangelogDir(dir string) Option {
	return func(r *Request) error {
		r.ChangelogDir = dir
		return nil
	}
}

// WithAtOnce batches all sources into a single compiler invocation.
func WithAtOnce(atOnce bool) Option {
	return func(r *Request) error {
		r.AtOnce = atOnce
		return nil
	}
}

// WithMultiDatabase overrides the multi-database mode. The value is
// validated by Resolve.
func WithMultiDatabase(mode string) Option {
	return func(r *Request) error {
		r.MultiDatabase = mode
		return nil
	}
}

// WithIncludes adds include directories forwarded to the compiler.
func WithIncludes(dirs ...string) Option {
	return func(r *Request) error {
		r.Includes = append(r.Includes, dirs...)
		return nil
	}
}

// WithDefines adds preprocessor definitions forwarded to the compiler.
func WithDefines(defines ...string) Option {
	return func(r *Request) error {
		r.Defines = append(r.Defines, defines...)
		return nil
	}
}

// WithOptions adds options passed to the compiler verbatim.
func WithOptions(opts ...string) Option {
	return func(r *Request) error {
		r.Options = append(r.Options, opts...)
		return nil
	}
}

// WithNoAutoLink suppresses link attachment.
func WithNoAutoLink() Option {
	return func(r *Request) error {
		r.NoAutoLink = true
		return nil
	}
}

// WithLinkScope sets the scope the runtime libraries are linked with.
func WithLinkScope(scope string) Option {
	return func(r *Request) error {
		if _, err := project.ParseScope(scope); err != nil {
			return odbgen.NewConfigError("LinkScope", scope, "must be PRIVATE, PUBLIC or INTERFACE")
		}
		r.LinkScope = scope
		return nil
	}
}

// WithLogger sets the logger used while planning the request.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Request) error {
		if logger == nil {
			return odbgen.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		r.Logger = logger
		return nil
	}
}

// WithBaseDir sets the directory relative paths are resolved against.
func WithBaseDir(dir string) Option {
	return func(r *Request) error {
		r.BaseDir = dir
		return nil
	}
}

// Apply applies options to the request.
// It returns the first error encountered.
func (r *Request) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (r *Request) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRequest creates a Request with default suffixes and schema format.
func NewRequest(opts ...Option) (*Request, error) {
	r := &Request{
		HeaderSuffix: DefaultHeaderSuffix,
		InlineSuffix: DefaultInlineSuffix,
		SourceSuffix: DefaultSourceSuffix,
		SchemaFormat: DefaultSchemaFormat,
	}
	if err := r.Apply(opts...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNewRequest creates a new Request with the given options.
// It panics if any option fails.
func MustNewRequest(opts ...Option) *Request {
	r, err := NewRequest(opts...)
	if err != nil {
		panic(err)
	}
	return r
}
