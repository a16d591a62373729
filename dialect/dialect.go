package dialect

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// A Library identifies a runtime library a consuming target links against.
type Library string

// Core is the database-independent runtime library, always linked.
const Core Library = "libodb"

// CoreHeader is the header probed to locate the core runtime.
const CoreHeader = "odb/version.hxx"

// Database is one of the backends the compiler can generate code for.
type Database uint8

const (
	// Common is the pseudo-backend for database-independent code.
	Common Database = iota
	MySQL
	SQLite
	PgSQL
	Oracle
	MSSQL
)

// Profile is an optional code-generation add-on with its own runtime library.
type Profile uint8

const (
	Boost Profile = iota
	Qt
)

type info struct {
	token   string
	display string
	library Library
	header  string
}

var databases = [...]info{
	Common: {token: "common", display: "Common"},
	MySQL:  {token: "mysql", display: "MySQL", library: "libodb-mysql", header: "odb/mysql/version.hxx"},
	SQLite: {token: "sqlite", display: "SQLite", library: "libodb-sqlite", header: "odb/sqlite/version.hxx"},
	PgSQL:  {token: "pgsql", display: "PostgreSQL", library: "libodb-pgsql", header: "odb/pgsql/version.hxx"},
	Oracle: {token: "oracle", display: "Oracle", library: "libodb-oracle", header: "odb/oracle/version.hxx"},
	MSSQL:  {token: "mssql", display: "SQL Server", library: "libodb-mssql", header: "odb/mssql/version.hxx"},
}

var profiles = [...]info{
	Boost: {token: "boost", display: "Boost", library: "libodb-boost", header: "odb/boost/version.hxx"},
	Qt:    {token: "qt", display: "Qt", library: "libodb-qt", header: "odb/qt/version.hxx"},
}

// Databases returns every database in declaration order, Common first.
func Databases() []Database {
	all := make([]Database, len(databases))
	for i := range databases {
		all[i] = Database(i)
	}
	return all
}

// Profiles returns every profile in declaration order.
func Profiles() []Profile {
	all := make([]Profile, len(profiles))
	for i := range profiles {
		all[i] = Profile(i)
	}
	return all
}

// String returns the token passed to the compiler with -d.
func (d Database) String() string { return d.info().token }

// DisplayName returns the human readable backend name.
func (d Database) DisplayName() string { return d.info().display }

// Library returns the runtime library of the backend. Common has none.
func (d Database) Library() Library { return d.info().library }

// Header returns the header probed to locate the backend runtime.
func (d Database) Header() string { return d.info().header }

// IsCommon reports whether d is the Common pseudo-backend.
func (d Database) IsCommon() bool { return d == Common }

func (d Database) info() info {
	if int(d) < len(databases) {
		return databases[d]
	}
	return info{token: fmt.Sprintf("database(%d)", d)}
}

// String returns the token passed to the compiler with --profile.
func (p Profile) String() string { return p.info().token }

// DisplayName returns the human readable profile name.
func (p Profile) DisplayName() string { return p.info().display }

// Library returns the runtime library of the profile.
func (p Profile) Library() Library { return p.info().library }

// Header returns the header probed to locate the profile runtime.
func (p Profile) Header() string { return p.info().header }

func (p Profile) info() info {
	if int(p) < len(profiles) {
		return profiles[p]
	}
	return info{token: fmt.Sprintf("profile(%d)", p)}
}

var fold = cases.Lower(language.Und)

// Normalize folds a user supplied token for comparison.
func Normalize(s string) string {
	return fold.String(strings.TrimSpace(s))
}

// ParseDatabase returns the database named by s.
func ParseDatabase(s string) (Database, error) {
	tok := Normalize(s)
	for i, d := range databases {
		if d.token == tok {
			return Database(i), nil
		}
	}
	return 0, fmt.Errorf("dialect: unknown database %q", s)
}

// ParseProfile returns the profile named by s.
func ParseProfile(s string) (Profile, error) {
	tok := Normalize(s)
	for i, p := range profiles {
		if p.token == tok {
			return Profile(i), nil
		}
	}
	return 0, fmt.Errorf("dialect: unknown profile %q", s)
}

// A Component is a locatable runtime piece: a database backend or a profile.
type Component struct {
	Name        string
	DisplayName string
	Library     Library
	Header      string
}

// LookupComponent resolves a backend or profile name into its library and
// header probe. Common is not a component and is never found.
func LookupComponent(name string) (Component, bool) {
	if d, err := ParseDatabase(name); err == nil && !d.IsCommon() {
		return Component{Name: d.String(), DisplayName: d.DisplayName(), Library: d.Library(), Header: d.Header()}, true
	}
	if p, err := ParseProfile(name); err == nil {
		return Component{Name: p.String(), DisplayName: p.DisplayName(), Library: p.Library(), Header: p.Header()}, true
	}
	return Component{}, false
}
