package gen

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	pgen "github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/dialect"
)

func TestInferMode(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		dbs      []dialect.Database
		expected Mode
	}{
		{"single backend", "", []dialect.Database{dialect.SQLite}, ModeNone},
		{"two backends", "", []dialect.Database{dialect.PgSQL, dialect.SQLite}, ModeDynamic},
		{"backend and common", "", []dialect.Database{dialect.PgSQL, dialect.Common}, ModeDynamic},
		{"common alone", "", []dialect.Database{dialect.Common}, ModeDynamic},
		{"explicit static", "static", []dialect.Database{dialect.PgSQL, dialect.SQLite}, ModeStatic},
		{"explicit dynamic on single backend", "dynamic", []dialect.Database{dialect.MySQL}, ModeDynamic},
		{"explicit is case folded", "STATIC", []dialect.Database{dialect.MySQL}, ModeStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := InferMode(tt.explicit, tt.dbs)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestInferModeRejectsUnknownToken(t *testing.T) {
	for _, tok := range []string{"both", "none", "dyn"} {
		t.Run(tok, func(t *testing.T) {
			_, err := InferMode(tok, []dialect.Database{dialect.PgSQL})

			require.Error(t, err)
			assert.True(t, odbgen.IsValidationError(err))
			assert.Contains(t, err.Error(), "MULTI_DATABASE")
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "", ModeNone.String())
	assert.Equal(t, "dynamic", ModeDynamic.String())
	assert.Equal(t, "static", ModeStatic.String())
	assert.False(t, ModeNone.Active())
	assert.True(t, ModeStatic.Active())
}

// genBackends generates a non-empty, duplicate-free list of concrete databases.
func genBackends(minLen int) gopter.Gen {
	return pgen.SliceOf(pgen.IntRange(1, len(dialect.Databases())-1)).
		Map(func(idx []int) []dialect.Database {
			var out []dialect.Database
			for _, i := range idx {
				db := dialect.Databases()[i]
				if !db.IsCommon() && !slices.Contains(out, db) {
					out = append(out, db)
				}
			}
			return out
		}).
		SuchThat(func(dbs []dialect.Database) bool { return len(dbs) >= minLen })
}

func TestProperty_InferMode(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("two or more real backends infer dynamic", prop.ForAll(
		func(dbs []dialect.Database) bool {
			m, err := InferMode("", dbs)
			return err == nil && m == ModeDynamic
		},
		genBackends(2),
	))

	properties.Property("a single real backend infers no mode", prop.ForAll(
		func(i int) bool {
			db := dialect.Databases()[i]
			m, err := InferMode("", []dialect.Database{db})
			return db.IsCommon() || (err == nil && m == ModeNone)
		},
		pgen.IntRange(0, len(dialect.Databases())-1),
	))

	properties.Property("explicit tokens other than dynamic or static are rejected", prop.ForAll(
		func(tok string) bool {
			_, err := InferMode(tok, []dialect.Database{dialect.SQLite})
			switch dialect.Normalize(tok) {
			case "dynamic", "static":
				return err == nil
			default:
				return odbgen.IsValidationError(err)
			}
		},
		pgen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
