package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/odbgen"
)

func TestNewRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := NewRequest()

		require.NoError(t, err)
		assert.Equal(t, DefaultHeaderSuffix, r.HeaderSuffix)
		assert.Equal(t, DefaultInlineSuffix, r.InlineSuffix)
		assert.Equal(t, DefaultSourceSuffix, r.SourceSuffix)
		assert.Equal(t, SchemaSQL, r.SchemaFormat)
	})

	t.Run("stops at first error", func(t *testing.T) {
		_, err := NewRequest(WithTargets(""), WithDB(""))

		require.Error(t, err)
		var cerr *odbgen.ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Targets", cerr.Option)
	})

	t.Run("must panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewRequest(WithOutputDir("")) })
	})
}

func TestApplyAll(t *testing.T) {
	r := &Request{}
	err := r.ApplyAll(WithTargets(""), WithSources(""), WithDB("sqlite"))

	require.Error(t, err)
	assert.True(t, odbgen.IsConfigError(err))
	assert.Contains(t, err.Error(), "Targets")
	assert.Contains(t, err.Error(), "Sources")
	assert.Equal(t, "sqlite", r.DB)
}

func TestOptionsRejectEmptyValues(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"target", WithTargets("app", "")},
		{"source", WithSources("")},
		{"db", WithDB("")},
		{"databases", WithDatabases()},
		{"output dir", WithOutputDir("")},
		{"schema format", WithSchemaFormat("xml")},
		{"link scope", WithLinkScope("shared")},
		{"logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opt(&Request{})

			require.Error(t, err)
			assert.True(t, odbgen.IsConfigError(err))
		})
	}
}

func TestOptionsAccumulate(t *testing.T) {
	r := MustNewRequest(
		WithTargets("app"),
		WithTargets("tool"),
		WithSources("a.hxx", "b.hxx"),
		WithDatabases("pgsql"),
		WithDatabases("sqlite"),
		WithSuffixes("", "", ".cpp"),
		WithProfiles("boost"),
		WithFeatures(FeatureQuery),
		WithIncludes("inc"),
		WithDefines("X=1"),
		WithOptions("--omit-drop"),
		WithAtOnce(true),
		WithNoAutoLink(),
		WithLinkScope("public"),
	)

	assert.Equal(t, []string{"app", "tool"}, r.Targets)
	assert.Equal(t, []string{"a.hxx", "b.hxx"}, r.Sources)
	assert.Equal(t, []string{"pgsql", "sqlite"}, r.Databases)
	assert.Equal(t, DefaultHeaderSuffix, r.HeaderSuffix)
	assert.Equal(t, ".cpp", r.SourceSuffix)
	assert.Equal(t, []string{"boost"}, r.Profiles)
	assert.Equal(t, []Feature{FeatureQuery}, r.Features)
	assert.Equal(t, []string{"inc"}, r.Includes)
	assert.Equal(t, []string{"X=1"}, r.Defines)
	assert.Equal(t, []string{"--omit-drop"}, r.Options)
	assert.True(t, r.AtOnce)
	assert.True(t, r.NoAutoLink)
	assert.Equal(t, "public", r.LinkScope)
}

func TestFeatureByName(t *testing.T) {
	f, err := FeatureByName("Schema")
	require.NoError(t, err)
	assert.Equal(t, FeatureSchema, f)

	_, err = FeatureByName("views")
	require.Error(t, err)
	assert.True(t, odbgen.IsConfigError(err))
	assert.Contains(t, err.Error(), "query")
}

func TestParseSchemaFormat(t *testing.T) {
	for _, tok := range []string{"sql", "SQL", "embedded", "separate"} {
		_, err := ParseSchemaFormat(tok)
		assert.NoError(t, err, tok)
	}
	_, err := ParseSchemaFormat("")
	assert.Error(t, err)
}
