// Package gen turns a generation request into everything the build graph
// needs to know about one ODB compiler run, without running the compiler.
//
// # Pipeline
//
//	Request (functional options)
//	        ↓
//	   Resolve: validation, database set, standard, output dirs
//	        ↓
//	   InferMode: none, dynamic or static multi-database mode
//	        ↓
//	   Predict: the exact files written per model header
//	        ↓
//	   Args / ResolveLinks: command line and runtime libraries
//
// Every stage is a pure function of its inputs. The discovery result is
// passed in explicitly, so requests can be resolved independently of each
// other and of the machine they are planned on.
//
// # Output naming
//
// For a model header person.hxx and databases pgsql and sqlite the compiler
// writes:
//
//	person-odb.hxx person-odb.ixx person-odb.cxx
//	person-odb-pgsql.hxx person-odb-pgsql.ixx person-odb-pgsql.cxx
//	person-odb-sqlite.hxx person-odb-sqlite.ixx person-odb-sqlite.cxx
//	person-pgsql.sql person-sqlite.sql
//
// The per-database triples only exist in multi-database mode, and the SQL
// files only with FeatureSchema in the sql schema format.
//
// # Error Handling
//
// Invalid requests fail with *odbgen.ValidationError and invalid option
// values with *odbgen.ConfigError:
//
//	r, err := gen.Resolve(req, p, discovery)
//	if odbgen.IsValidationError(err) {
//	    // fix the request
//	}
package gen
