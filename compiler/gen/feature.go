package gen

import (
	"fmt"
	"slices"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/dialect"
)

var (
	// FeatureQuery generates query support code.
	FeatureQuery = Feature{
		Name:        "query",
		Flag:        "--generate-query",
		Description: "Generate query support code for persistent classes and views",
	}

	// FeatureSession generates session support code.
	FeatureSession = Feature{
		Name:        "session",
		Flag:        "--generate-session",
		Description: "Generate session support code that caches loaded objects",
	}

	// FeatureSchema generates the database schema in the configured format.
	FeatureSchema = Feature{
		Name:        "schema",
		Flag:        "--generate-schema",
		Description: "Generate the database schema for every backend",
	}

	// FeaturePrepared generates prepared query support code.
	FeaturePrepared = Feature{
		Name:        "prepared",
		Flag:        "--generate-prepared",
		Description: "Generate prepared query execution support code",
	}

	// AllFeatures holds every toggle in command line order.
	AllFeatures = []Feature{
		FeatureQuery,
		FeatureSession,
		FeatureSchema,
		FeaturePrepared,
	}
)

// A Feature is a boolean generation toggle.
type Feature struct {
	// Name of the toggle, as used in configuration files.
	Name string
	// Flag passed to the compiler when the toggle is enabled.
	Flag string
	// A Description of this toggle.
	Description string
}

// FeatureByName returns the toggle with the given name.
func FeatureByName(name string) (Feature, error) {
	name = dialect.Normalize(name)
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, nil
		}
	}
	return Feature{}, odbgen.NewConfigError("Features", name, fmt.Sprintf("unknown feature; use one of %v", featureNames()))
}

func featureNames() []string {
	names := make([]string, len(AllFeatures))
	for i, f := range AllFeatures {
		names[i] = f.Name
	}
	return names
}

// canonicalFeatures deduplicates fs and orders it as AllFeatures.
func canonicalFeatures(fs []Feature) []Feature {
	var out []Feature
	for _, f := range AllFeatures {
		if slices.ContainsFunc(fs, func(o Feature) bool { return o.Name == f.Name }) {
			out = append(out, f)
		}
	}
	return out
}

// SchemaFormat selects how the schema is emitted with FeatureSchema.
type SchemaFormat string

const (
	// SchemaSQL writes one standalone SQL file per backend.
	SchemaSQL SchemaFormat = "sql"
	// SchemaEmbedded embeds the schema into the generated source file.
	SchemaEmbedded SchemaFormat = "embedded"
	// SchemaSeparate writes the schema creation code to a separate source file.
	SchemaSeparate SchemaFormat = "separate"
)

// ParseSchemaFormat validates a schema format token.
func ParseSchemaFormat(s string) (SchemaFormat, error) {
	switch f := SchemaFormat(dialect.Normalize(s)); f {
	case SchemaSQL, SchemaEmbedded, SchemaSeparate:
		return f, nil
	default:
		return "", odbgen.NewConfigError("SchemaFormat", s, "unsupported schema format; use sql, embedded, or separate")
	}
}
