package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/odbgen"
)

// Renderer writes a graph in the format of a host build engine.
type Renderer interface {
	Render(w io.Writer, g *Graph) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(w io.Writer, g *Graph) error

// Render implements Renderer.
func (f RendererFunc) Render(w io.Writer, g *Graph) error { return f(w, g) }

// Renderer formats.
const (
	FormatNinja = "ninja"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

var renderers = map[string]Renderer{
	FormatNinja: RendererFunc(renderNinja),
	FormatYAML:  RendererFunc(renderYAML),
	FormatJSON:  RendererFunc(renderJSON),
}

// RendererFor returns the renderer of the named format.
func RendererFor(format string) (Renderer, error) {
	r, ok := renderers[strings.ToLower(format)]
	if !ok {
		return nil, odbgen.NewConfigError("format", format, "unsupported format; use ninja, yaml, or json")
	}
	return r, nil
}

func renderYAML(w io.Writer, g *Graph) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func renderJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// renderNinja writes a ninja manifest fragment. Each task becomes a build
// statement of the odb rule, and each group a phony target the consuming
// target's compile edges can depend on.
func renderNinja(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Code generated by odbgen. DO NOT EDIT.")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "rule odb")
	fmt.Fprintln(bw, "  command = $cmd")
	fmt.Fprintln(bw, "  description = ODB $desc")
	fmt.Fprintln(bw, "  restat = 1")
	for _, t := range g.Tasks {
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "build %s: odb %s\n", ninjaPaths(t.Outputs), ninjaPaths(t.Inputs))
		fmt.Fprintf(bw, "  cmd = %s\n", ninjaValue(shellJoin(t.Command)))
		var names []string
		for _, in := range t.Inputs {
			names = append(names, filepath.Base(in))
		}
		fmt.Fprintf(bw, "  desc = %s\n", ninjaValue(strings.Join(names, " ")))
	}
	for _, grp := range g.Groups {
		var outs []string
		for _, id := range grp.Tasks {
			if t, ok := g.Task(id); ok {
				outs = append(outs, t.Outputs...)
			}
		}
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "build %s: phony %s\n", ninjaPath(grp.Name), ninjaPaths(outs))
	}
	return bw.Flush()
}

var (
	pathEscaper  = strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")
	valueEscaper = strings.NewReplacer("$", "$$")
)

func ninjaPath(p string) string { return pathEscaper.Replace(p) }

func ninjaPaths(ps []string) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = ninjaPath(p)
	}
	return strings.Join(out, " ")
}

func ninjaValue(v string) string { return valueEscaper.Replace(v) }

// shellJoin quotes args for a POSIX shell.
func shellJoin(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = shellQuote(a)
	}
	return strings.Join(out, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=+,:@%", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
