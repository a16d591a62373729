package gen

import "github.com/syssam/odbgen/project"

// Args assembles the compiler flags, without input files, in the order the
// compiler documents them. includes and defines come from the consuming
// targets' compile configuration and follow the request's own values.
func (r *Resolved) Args(includes, defines []string) []string {
	var args []string
	if r.Mode.Active() {
		args = append(args, "--multi-database", r.Mode.String())
	}
	for _, db := range r.Databases {
		args = append(args, "-d", db.String())
	}
	if r.Standard != "" {
		args = append(args, "--std", r.Standard)
	}
	for _, p := range r.Profiles {
		args = append(args, "--profile", p.String())
	}
	for _, f := range r.Features {
		args = append(args, f.Flag)
		if f.Name == FeatureSchema.Name {
			args = append(args, "--schema-format", string(r.SchemaFormat))
		}
	}
	if r.TablePrefix != "" {
		args = append(args, "--table-prefix", r.TablePrefix)
	}
	if r.Changelog != "" {
		args = append(args, "--changelog", r.Changelog)
	}
	args = append(args, "--changelog-dir", r.ChangelogDir)
	for _, inc := range project.AppendUnique(append([]string(nil), r.Includes...), includes...) {
		args = append(args, "-I", inc)
	}
	for _, def := range project.AppendUnique(append([]string(nil), r.Defines...), defines...) {
		args = append(args, "-D"+def)
	}
	args = append(args, r.Options...)
	return append(args,
		"--hxx-suffix", r.HeaderSuffix,
		"--cxx-suffix", r.SourceSuffix,
		"--ixx-suffix", r.InlineSuffix,
		"--output-dir", r.OutputDir,
	)
}
