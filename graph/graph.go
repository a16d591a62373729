package graph

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/compiler/gen"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/project"
)

// Task is one compiler invocation.
type Task struct {
	ID string `json:"id" yaml:"id"`
	// Targets consume the outputs of the task.
	Targets []string `json:"targets" yaml:"targets"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	// Outputs are the predicted artifacts of every input, in input order.
	Outputs []string `json:"outputs" yaml:"outputs"`
	// Sources is the compilable subset of Outputs.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	// SideFiles are glob patterns of undeclared files the compiler may write.
	SideFiles []string `json:"side_files,omitempty" yaml:"side_files,omitempty"`
	// Command is the full argument vector, executable first.
	Command []string `json:"command" yaml:"command"`
}

// Stems returns the base names of the task inputs without extension.
func (t *Task) Stems() []string {
	stems := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		stems[i] = gen.Stem(in)
	}
	return stems
}

// Group is a barrier node completed when every task feeding Target is done.
type Group struct {
	Name   string   `json:"name" yaml:"name"`
	Target string   `json:"target" yaml:"target"`
	Tasks  []string `json:"tasks" yaml:"tasks"`
}

// Mutation is the change a graph makes to a consuming target.
type Mutation struct {
	Target      string         `json:"target" yaml:"target"`
	Sources     []string       `json:"sources" yaml:"sources"`
	IncludeDirs []string       `json:"include_dirs" yaml:"include_dirs"`
	Links       []project.Link `json:"links,omitempty" yaml:"links,omitempty"`
	DependsOn   []string       `json:"depends_on" yaml:"depends_on"`
}

// Graph is a declarative build graph. It carries no execution state and
// can be rendered for any host build engine.
type Graph struct {
	Tasks     []*Task     `json:"tasks" yaml:"tasks"`
	Groups    []*Group    `json:"groups" yaml:"groups"`
	Mutations []*Mutation `json:"mutations" yaml:"mutations"`
	// OutputDirs must exist before any task runs.
	OutputDirs []string `json:"output_dirs" yaml:"output_dirs"`
}

// GroupName returns the barrier node name of a consuming target.
func GroupName(target string) string {
	return target + "_odb"
}

// TaskPrefix returns the id prefix of the tasks of r. Requests writing
// outside the default output directory get a hash of that directory in the
// prefix, so same-stem inputs generated into different directories do not
// collide.
func TaskPrefix(r *gen.Resolved, p *project.Project) string {
	prefix := "odb_" + strings.Join(r.Targets, "_")
	if r.OutputDir != filepath.Join(cmp.Or(p.BuildDir, p.Dir), gen.DefaultOutputSubdir) {
		prefix += fmt.Sprintf("_%08x", murmur3.Sum32([]byte(r.OutputDir)))
	}
	return prefix
}

// Build emits the generation tasks of a resolved request: one task per
// input, or a single task for all inputs when the request is batched.
// Include directories and definitions of every consuming target are
// forwarded to the compiler; directories added by earlier graphs are not.
// The returned graph is validated.
func Build(r *gen.Resolved, p *project.Project, d *locate.Result) (*Graph, error) {
	if r == nil || p == nil {
		return nil, odbgen.NewValidationError("graph", nil, "resolved request and project are required")
	}
	var includes, defines []string
	for _, name := range r.Targets {
		t, ok := p.Target(name)
		if !ok {
			return nil, odbgen.NewValidationError("TARGETS", name, "target does not exist")
		}
		includes = project.AppendUnique(includes, t.CompileIncludeDirs()...)
		defines = project.AppendUnique(defines, t.Definitions...)
	}
	args := r.Args(includes, defines)
	prefix := TaskPrefix(r, p)

	sets := make([]gen.ArtifactSet, len(r.Sources))
	for i, src := range r.Sources {
		sets[i] = gen.PredictFile(src, r)
	}
	g := &Graph{OutputDirs: project.AppendUnique(nil, r.OutputDir, r.ChangelogDir)}
	if r.AtOnce {
		g.Tasks = append(g.Tasks, newTask(prefix+"_all", r, args, sets...))
	} else {
		for _, set := range sets {
			g.Tasks = append(g.Tasks, newTask(prefix+"_"+set.Stem, r, args, set))
		}
	}

	var ids, sources []string
	for _, t := range g.Tasks {
		ids = append(ids, t.ID)
		sources = append(sources, t.Sources...)
		r.Logger().Debug("planned odb task", "task", t.ID, "inputs", len(t.Inputs), "outputs", len(t.Outputs))
	}
	var links []project.Link
	if !r.NoAutoLink {
		for _, lib := range gen.ResolveLinks(r, d) {
			links = append(links, project.Link{Library: string(lib), Scope: cmp.Or(r.LinkScope, project.Private)})
		}
	}
	for _, name := range r.Targets {
		g.Groups = append(g.Groups, &Group{Name: GroupName(name), Target: name, Tasks: slices.Clone(ids)})
		g.Mutations = append(g.Mutations, &Mutation{
			Target:      name,
			Sources:     slices.Clone(sources),
			IncludeDirs: []string{r.OutputDir},
			Links:       slices.Clone(links),
			DependsOn:   []string{GroupName(name)},
		})
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func newTask(id string, r *gen.Resolved, args []string, sets ...gen.ArtifactSet) *Task {
	t := &Task{ID: id, Targets: slices.Clone(r.Targets)}
	for _, set := range sets {
		t.Inputs = append(t.Inputs, set.Input)
		t.Outputs = append(t.Outputs, set.Paths()...)
		t.Sources = append(t.Sources, set.Sources()...)
		t.SideFiles = project.AppendUnique(t.SideFiles, set.SideFiles...)
	}
	t.Command = make([]string, 0, 1+len(args)+len(t.Inputs))
	t.Command = append(t.Command, r.Executable)
	t.Command = append(t.Command, args...)
	t.Command = append(t.Command, t.Inputs...)
	return t
}

// Task returns the task with the given id.
func (g *Graph) Task(id string) (*Task, bool) {
	for _, t := range g.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Outputs returns every declared output in task order.
func (g *Graph) Outputs() []string {
	var out []string
	for _, t := range g.Tasks {
		out = append(out, t.Outputs...)
	}
	return out
}

// Validate checks that task ids are unique, that no output path is declared
// by two tasks, and that every group refers to existing tasks.
func (g *Graph) Validate() error {
	ids := make(map[string]bool, len(g.Tasks))
	writers := make(map[string]string)
	for _, t := range g.Tasks {
		if ids[t.ID] {
			return odbgen.NewValidationError("task", t.ID, "duplicate task id")
		}
		ids[t.ID] = true
		for _, out := range t.Outputs {
			if prev, ok := writers[out]; ok {
				return odbgen.NewValidationError("output", out,
					fmt.Sprintf("declared by both %s and %s; every output must have exactly one writer", prev, t.ID))
			}
			writers[out] = t.ID
		}
	}
	for _, grp := range g.Groups {
		for _, id := range grp.Tasks {
			if !ids[id] {
				return odbgen.NewValidationError("group", grp.Name, fmt.Sprintf("unknown task %s", id))
			}
		}
	}
	return nil
}

// Merge combines the graphs of several requests. Groups and mutations of
// the same target are unified. The result is validated so that requests
// writing the same file are rejected before execution.
func Merge(graphs ...*Graph) (*Graph, error) {
	m := &Graph{}
	groups := make(map[string]*Group)
	mutations := make(map[string]*Mutation)
	for _, g := range graphs {
		if g == nil {
			continue
		}
		m.Tasks = append(m.Tasks, g.Tasks...)
		m.OutputDirs = project.AppendUnique(m.OutputDirs, g.OutputDirs...)
		for _, grp := range g.Groups {
			if cur, ok := groups[grp.Name]; ok {
				cur.Tasks = project.AppendUnique(cur.Tasks, grp.Tasks...)
				continue
			}
			cp := *grp
			cp.Tasks = slices.Clone(grp.Tasks)
			groups[grp.Name] = &cp
			m.Groups = append(m.Groups, &cp)
		}
		for _, mu := range g.Mutations {
			cur, ok := mutations[mu.Target]
			if !ok {
				cur = &Mutation{Target: mu.Target}
				mutations[mu.Target] = cur
				m.Mutations = append(m.Mutations, cur)
			}
			cur.Sources = project.AppendUnique(cur.Sources, mu.Sources...)
			cur.IncludeDirs = project.AppendUnique(cur.IncludeDirs, mu.IncludeDirs...)
			cur.DependsOn = project.AppendUnique(cur.DependsOn, mu.DependsOn...)
			cur.Links = appendLinks(cur.Links, mu.Links...)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Apply performs the target mutations on p. When any target is unknown or
// already configured nothing is changed.
func (g *Graph) Apply(p *project.Project) error {
	targets := make([]string, len(g.Mutations))
	for i, mu := range g.Mutations {
		targets[i] = mu.Target
	}
	if err := p.Mutable(targets...); err != nil {
		return fmt.Errorf("apply graph: %w", err)
	}
	for _, mu := range g.Mutations {
		err := p.Mutate(mu.Target, func(t *project.Target) {
			t.Sources = project.AppendUnique(t.Sources, mu.Sources...)
			t.AddGeneratedIncludeDirs(mu.IncludeDirs...)
			t.Dependencies = project.AppendUnique(t.Dependencies, mu.DependsOn...)
			t.Links = appendLinks(t.Links, mu.Links...)
		})
		if err != nil {
			return fmt.Errorf("apply graph to %s: %w", mu.Target, err)
		}
	}
	return nil
}

func appendLinks(dst []project.Link, links ...project.Link) []project.Link {
	for _, l := range links {
		if !slices.ContainsFunc(dst, func(o project.Link) bool { return o.Library == l.Library }) {
			dst = append(dst, l)
		}
	}
	return dst
}
