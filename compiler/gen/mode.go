package gen

import (
	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/dialect"
)

// Mode is the multi-database mode of a generation request.
type Mode uint8

const (
	// ModeNone is ordinary single-database generation.
	ModeNone Mode = iota
	// ModeDynamic generates code that dispatches to the backend at runtime.
	ModeDynamic
	// ModeStatic generates code for a backend selected at build time.
	ModeStatic
)

// String returns the --multi-database token, empty for ModeNone.
func (m Mode) String() string {
	switch m {
	case ModeDynamic:
		return "dynamic"
	case ModeStatic:
		return "static"
	default:
		return ""
	}
}

// Active reports whether multi-database generation is enabled.
func (m Mode) Active() bool { return m != ModeNone }

// ParseMode validates an explicit MULTI_DATABASE token.
func ParseMode(s string) (Mode, error) {
	switch dialect.Normalize(s) {
	case "dynamic":
		return ModeDynamic, nil
	case "static":
		return ModeStatic, nil
	default:
		return ModeNone, &odbgen.ValidationError{
			Field:   "MULTI_DATABASE",
			Value:   s,
			Message: "unknown multi-database mode; use dynamic or static",
		}
	}
}

// InferMode decides the multi-database mode. An explicit token wins and
// must be valid. Otherwise several databases, or "common" alone, require
// dynamic mode; a single concrete database needs none.
func InferMode(explicit string, dbs []dialect.Database) (Mode, error) {
	switch {
	case explicit != "":
		return ParseMode(explicit)
	case len(dbs) > 1:
		return ModeDynamic, nil
	case len(dbs) == 1 && dbs[0].IsCommon():
		return ModeDynamic, nil
	default:
		return ModeNone, nil
	}
}
