package gen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs(t *testing.T) {
	p, d := fixture(t, "person.hxx")

	t.Run("minimal", func(t *testing.T) {
		r := mustResolve(t, p, d, WithTargets("app"), WithSources("person.hxx"), WithDB("sqlite"))

		assert.Equal(t, []string{
			"-d", "sqlite",
			"--changelog-dir", r.OutputDir,
			"--hxx-suffix", ".hxx",
			"--cxx-suffix", ".cxx",
			"--ixx-suffix", ".ixx",
			"--output-dir", r.OutputDir,
		}, r.Args(nil, nil))
	})

	t.Run("full", func(t *testing.T) {
		r := mustResolve(t, p, d,
			WithTargets("app"),
			WithSources("person.hxx"),
			WithDatabases("pgsql", "sqlite"),
			WithStandard("17"),
			WithProfiles("boost"),
			WithFeatures(FeatureSchema, FeatureQuery, FeatureSession, FeaturePrepared),
			WithSchemaFormat("embedded"),
			WithTablePrefix("app_"),
			WithChangelog("person.xml"),
			WithIncludes("include"),
			WithDefines("NDEBUG"),
			WithOptions("--default-pointer", "std::shared_ptr"),
		)
		inc := filepath.Join(p.Dir, "include")

		args := r.Args([]string{"/usr/include/app", inc}, []string{"APP=1", "NDEBUG"})

		assert.Equal(t, []string{
			"--multi-database", "dynamic",
			"-d", "pgsql", "-d", "sqlite", "-d", "common",
			"--std", "c++17",
			"--profile", "boost",
			"--generate-query",
			"--generate-session",
			"--generate-schema", "--schema-format", "embedded",
			"--generate-prepared",
			"--table-prefix", "app_",
			"--changelog", filepath.Join(p.Dir, "person.xml"),
			"--changelog-dir", r.OutputDir,
			"-I", inc, "-I", "/usr/include/app",
			"-DNDEBUG", "-DAPP=1",
			"--default-pointer", "std::shared_ptr",
			"--hxx-suffix", ".hxx",
			"--cxx-suffix", ".cxx",
			"--ixx-suffix", ".ixx",
			"--output-dir", r.OutputDir,
		}, args)
	})

	t.Run("does not alias resolved slices", func(t *testing.T) {
		r := mustResolve(t, p, d, WithTargets("app"), WithSources("person.hxx"), WithDB("sqlite"),
			WithIncludes("a"), WithDefines("X"))

		r.Args([]string{"/b"}, []string{"Y"})

		assert.Equal(t, []string{filepath.Join(p.Dir, "a")}, r.Includes)
		assert.Equal(t, []string{"X"}, r.Defines)
	})
}
