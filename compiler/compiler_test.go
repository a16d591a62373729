package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/compiler/gen"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/dialect"
	"github.com/syssam/odbgen/graph"
	"github.com/syssam/odbgen/project"
)

func setup(t *testing.T) (*project.Project, *locate.Result) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.hxx"), nil, 0o644))
	p := project.New("demo", dir, filepath.Join(dir, "build"))
	require.NoError(t, p.AddTarget(&project.Target{Name: "app", Sources: []string{"main.cxx"}}))
	require.NoError(t, p.AddTarget(&project.Target{Name: "lib"}))
	d := &locate.Result{
		Executable: "/usr/bin/odb",
		Library:    "/usr/lib/libodb.so",
		Components: map[string]locate.Component{
			"pgsql":  {Name: "pgsql", Found: true, Library: dialect.PgSQL.Library()},
			"sqlite": {Name: "sqlite", Found: true, Library: dialect.SQLite.Library()},
			"oracle": {Name: "oracle", Library: dialect.Oracle.Library()},
		},
	}
	return p, d
}

func TestGenerate(t *testing.T) {
	t.Run("two databases with schema", func(t *testing.T) {
		p, d := setup(t)

		res, err := Generate(p, d,
			gen.WithTargets("app"),
			gen.WithSources("person.hxx"),
			gen.WithDatabases("pgsql", "sqlite"),
			gen.WithFeatures(gen.FeatureSchema),
		)

		require.NoError(t, err)
		out := filepath.Join(p.BuildDir, gen.DefaultOutputSubdir)
		assert.Equal(t, []string{
			filepath.Join(out, "person-odb.cxx"),
			filepath.Join(out, "person-odb-pgsql.cxx"),
			filepath.Join(out, "person-odb-sqlite.cxx"),
		}, res.Sources)
		require.Len(t, res.Graph.Tasks, 1)
		assert.Contains(t, res.Graph.Tasks[0].Outputs, filepath.Join(out, "person-pgsql.sql"))
		assert.Contains(t, res.Graph.Tasks[0].Outputs, filepath.Join(out, "person-sqlite.sql"))
		assert.Equal(t, gen.ModeDynamic, res.Resolved.Mode)

		app, _ := p.Target("app")
		assert.Equal(t, append([]string{"main.cxx"}, res.Sources...), app.Sources)
		assert.Equal(t, []string{out}, app.IncludeDirs)
		assert.Equal(t, []string{"app_odb"}, app.Dependencies)
		assert.Equal(t, []project.Link{
			{Library: "libodb", Scope: project.Private},
			{Library: "libodb-pgsql", Scope: project.Private},
			{Library: "libodb-sqlite", Scope: project.Private},
		}, app.Links)
	})

	t.Run("unavailable component is not linked", func(t *testing.T) {
		p, d := setup(t)

		res, err := Generate(p, d,
			gen.WithTargets("app"),
			gen.WithSources("person.hxx"),
			gen.WithDatabases("oracle", "sqlite"),
		)

		require.NoError(t, err)
		assert.Len(t, res.Sources, 3)
		app, _ := p.Target("app")
		assert.Len(t, app.Links, 2)
		assert.False(t, d.ComponentFound("oracle"))
	})

	t.Run("invalid request leaves the project untouched", func(t *testing.T) {
		p, d := setup(t)

		_, err := Generate(p, d, gen.WithTargets("app"), gen.WithSources("person.hxx"))

		require.Error(t, err)
		assert.True(t, odbgen.IsValidationError(err))
		app, _ := p.Target("app")
		assert.Equal(t, []string{"main.cxx"}, app.Sources)
	})

	t.Run("option error", func(t *testing.T) {
		p, d := setup(t)

		_, err := Generate(p, d, gen.WithDB(""))

		assert.True(t, odbgen.IsConfigError(err))
	})

	t.Run("configured target", func(t *testing.T) {
		p, d := setup(t)
		require.NoError(t, p.Finalize("lib"))

		_, err := Generate(p, d, gen.WithTargets("app", "lib"), gen.WithSources("person.hxx"), gen.WithDB("sqlite"))

		require.Error(t, err)
		assert.ErrorIs(t, err, odbgen.ErrValidation)
		app, _ := p.Target("app")
		assert.Equal(t, []string{"main.cxx"}, app.Sources)
		assert.Empty(t, app.Dependencies)
		assert.Empty(t, app.Links)
	})

	t.Run("sequential requests match a plan", func(t *testing.T) {
		p, d := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(p.Dir, "book.hxx"), nil, 0o644))
		opts := [][]gen.Option{
			{gen.WithTargets("app"), gen.WithSources("person.hxx"), gen.WithDB("sqlite")},
			{gen.WithTargets("app"), gen.WithSources("book.hxx"), gen.WithDB("sqlite")},
		}
		var sequential []*graph.Task
		for _, o := range opts {
			res, err := Generate(p, d, o...)
			require.NoError(t, err)
			sequential = append(sequential, res.Graph.Tasks...)
		}

		planned, _, err := Plan(setupProject(t, p.Dir), d, gen.MustNewRequest(opts[0]...), gen.MustNewRequest(opts[1]...))

		require.NoError(t, err)
		require.Len(t, planned.Tasks, 2)
		for i, task := range planned.Tasks {
			assert.Equal(t, task.Command, sequential[i].Command)
		}
	})
}

func TestPlan(t *testing.T) {
	p, d := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.Dir, "book.hxx"), nil, 0o644))
	reqs := []*gen.Request{
		gen.MustNewRequest(gen.WithTargets("app"), gen.WithSources("person.hxx"), gen.WithDB("pgsql"), gen.WithOutputDir("pg")),
		gen.MustNewRequest(gen.WithTargets("app"), gen.WithSources("book.hxx"), gen.WithDB("sqlite"), gen.WithOutputDir("lite")),
	}

	g, results, err := Plan(p, d, reqs...)

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, g.Tasks, 2)
	require.Len(t, g.Groups, 1)
	assert.Equal(t, []string{g.Tasks[0].ID, g.Tasks[1].ID}, g.Groups[0].Tasks)
	assert.True(t, strings.HasSuffix(g.Tasks[0].ID, "_person"))
	app, _ := p.Target("app")
	assert.Len(t, app.Sources, 3)
	assert.Len(t, app.IncludeDirs, 2)

	t.Run("conflicting requests", func(t *testing.T) {
		p, d := setup(t)
		reqs := []*gen.Request{
			gen.MustNewRequest(gen.WithTargets("app"), gen.WithSources("person.hxx"), gen.WithDB("pgsql")),
			gen.MustNewRequest(gen.WithTargets("app"), gen.WithSources("person.hxx"), gen.WithDB("sqlite")),
		}

		_, _, err := Plan(p, d, reqs...)

		require.Error(t, err)
		assert.True(t, odbgen.IsValidationError(err))
		app, _ := p.Target("app")
		assert.Equal(t, []string{"main.cxx"}, app.Sources)
	})

	t.Run("configured target in a later request", func(t *testing.T) {
		p, d := setup(t)
		require.NoError(t, p.Finalize("lib"))

		_, _, err := Plan(p, d,
			gen.MustNewRequest(gen.WithTargets("app"), gen.WithSources("person.hxx"), gen.WithDB("sqlite")),
			gen.MustNewRequest(gen.WithTargets("lib"), gen.WithSources("person.hxx"), gen.WithDB("pgsql"), gen.WithOutputDir("lib")),
		)

		require.Error(t, err)
		assert.True(t, odbgen.IsValidationError(err))
		app, _ := p.Target("app")
		assert.Equal(t, []string{"main.cxx"}, app.Sources)
		assert.Empty(t, app.Dependencies)
		assert.Empty(t, app.Links)
		assert.Empty(t, app.IncludeDirs)
	})
}

// setupProject returns a fresh project over the same source directory.
func setupProject(t *testing.T, dir string) *project.Project {
	t.Helper()
	p := project.New("demo", dir, filepath.Join(dir, "build"))
	require.NoError(t, p.AddTarget(&project.Target{Name: "app", Sources: []string{"main.cxx"}}))
	return p
}
