package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/odbgen/compiler/load"
)

const config = `project:
  name: demo
compiler:
  executable: bin/odb
  components: [sqlite, db2]
targets:
  - name: app
    sources: [main.cxx]
requests:
  - targets: [app]
    sources: [person.hxx]
    db: sqlite
`

func workspace(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler is a shell script")
	}
	for _, env := range []string{load.EnvExecutable, load.EnvRoot, load.EnvBuildDir, load.EnvWorkers} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	stub := "#!/bin/sh\necho 'ODB object-relational mapping (ORM) compiler for C++ 2.5.0'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "odb"), []byte(stub), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.hxx"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, load.DefaultFile), []byte(config), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(context.Background(), append([]string{"odbgen"}, args...))
	return stdout.String(), err
}

func TestPlan(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, load.DefaultFile)

	t.Run("yaml to stdout", func(t *testing.T) {
		out, err := run(t, "--config", path, "plan", "--format", "yaml")

		require.NoError(t, err)
		assert.Contains(t, out, "odb_app_person")
		assert.Contains(t, out, "person-odb.cxx")
		assert.Contains(t, out, filepath.Join(dir, "bin", "odb"))
	})

	t.Run("ninja to file", func(t *testing.T) {
		file := filepath.Join(dir, "odb.ninja")

		_, err := run(t, "--config", path, "plan", "--output", file)

		require.NoError(t, err)
		b, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(b), "rule odb")
		assert.Contains(t, string(b), "build app_odb: phony")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "--config", path, "plan", "--format", "make")

		assert.Error(t, err)
	})
}

func TestLocate(t *testing.T) {
	dir := workspace(t)

	out, err := run(t, "--config", filepath.Join(dir, load.DefaultFile), "locate")

	require.NoError(t, err)
	assert.Contains(t, out, "odb: "+filepath.Join(dir, "bin", "odb")+" (2.5.0)")
	assert.Contains(t, out, "SQLite (sqlite): not found")
	assert.Contains(t, out, "db2: not found")
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "plan")

	assert.Error(t, err)
}
