// Package dialect defines the closed vocabulary of database backends and
// profiles understood by the ODB compiler.
//
// # Supported Databases
//
//	dialect.Common = "common"   (database-independent code)
//	dialect.MySQL  = "mysql"
//	dialect.SQLite = "sqlite"
//	dialect.PgSQL  = "pgsql"
//	dialect.Oracle = "oracle"
//	dialect.MSSQL  = "mssql"
//
// # Profiles
//
//	dialect.Boost = "boost"
//	dialect.Qt    = "qt"
//
// Every database except Common, and every profile, is associated with a
// runtime library and a header that proves the library is installed:
//
//	dialect.PgSQL.Library() // "libodb-pgsql"
//	dialect.PgSQL.Header()  // "odb/pgsql/version.hxx"
//
// Tokens are parsed case-insensitively:
//
//	db, err := dialect.ParseDatabase("PgSQL")
package dialect
