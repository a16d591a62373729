package gen

import (
	"path/filepath"
	"strings"

	"github.com/syssam/odbgen/dialect"
)

// Kind classifies a predicted artifact.
type Kind uint8

const (
	KindHeader Kind = iota
	KindInline
	KindSource
	KindSchema
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindInline:
		return "inline"
	case KindSource:
		return "source"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Artifact is one file the compiler writes.
type Artifact struct {
	Path     string
	Kind     Kind
	Database dialect.Database
	// Compilable marks files that are added to the consuming target's sources.
	Compilable bool
}

// ArtifactSet is the ordered list of files predicted for one input.
type ArtifactSet struct {
	Input     string
	Stem      string
	Artifacts []Artifact
	// SideFiles are glob patterns of files the compiler may write besides
	// the artifacts (changelogs). They are neither declared nor compiled.
	SideFiles []string
}

// Paths returns every artifact path in prediction order.
func (s ArtifactSet) Paths() []string {
	paths := make([]string, len(s.Artifacts))
	for i, a := range s.Artifacts {
		paths[i] = a.Path
	}
	return paths
}

// Sources returns the compilable subset of the artifacts.
func (s ArtifactSet) Sources() []string {
	var paths []string
	for _, a := range s.Artifacts {
		if a.Compilable {
			paths = append(paths, a.Path)
		}
	}
	return paths
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PredictFile predicts the artifacts of the model header at path.
func PredictFile(path string, r *Resolved) ArtifactSet {
	set := Predict(Stem(path), r)
	set.Input = path
	return set
}

// Predict computes the files the compiler writes for stem without running
// it. The set must match the compiler output exactly: a predicted file that
// is never written leaves a dangling dependency, and an unpredicted file is
// never tracked.
//
// The common triple always exists. In multi-database mode every concrete
// database adds its own triple. With schema generation every concrete
// database adds a schema artifact unless the schema is embedded.
func Predict(stem string, r *Resolved) ArtifactSet {
	set := ArtifactSet{Stem: stem}
	triple := func(suffix string, db dialect.Database) {
		name := stem + suffix
		set.Artifacts = append(set.Artifacts,
			Artifact{Path: r.path(name + r.HeaderSuffix), Kind: KindHeader, Database: db},
			Artifact{Path: r.path(name + r.InlineSuffix), Kind: KindInline, Database: db},
			Artifact{Path: r.path(name + r.SourceSuffix), Kind: KindSource, Database: db, Compilable: true},
		)
	}

	triple("-odb", dialect.Common)
	backends := r.Backends()
	if r.Mode.Active() {
		for _, db := range backends {
			triple("-odb-"+db.String(), db)
		}
	}
	if r.FeatureEnabled(FeatureSchema) {
		for _, db := range backends {
			switch r.SchemaFormat {
			case SchemaSQL:
				set.Artifacts = append(set.Artifacts, Artifact{
					Path:     r.path(stem + "-" + db.String() + ".sql"),
					Kind:     KindSchema,
					Database: db,
				})
			case SchemaSeparate:
				set.Artifacts = append(set.Artifacts, Artifact{
					Path:       r.path(stem + "-schema-" + db.String() + r.SourceSuffix),
					Kind:       KindSchema,
					Database:   db,
					Compilable: true,
				})
			}
		}
	}

	if r.Changelog != "" {
		set.SideFiles = []string{r.Changelog}
	} else {
		set.SideFiles = []string{
			filepath.Join(r.ChangelogDir, stem+".xml"),
			filepath.Join(r.ChangelogDir, stem+"-*.xml"),
		}
	}
	return set
}

func (r *Resolved) path(name string) string {
	return filepath.Join(r.OutputDir, name)
}
