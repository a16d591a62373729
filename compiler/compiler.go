// Package compiler is the entry point for wiring ODB code generation into
// a project.
//
//	discovery, err := locate.New().Locate(ctx, locate.Options{Required: true})
//	if err != nil {
//	    return err
//	}
//	res, err := compiler.Generate(p, discovery,
//	    gen.WithTargets("app"),
//	    gen.WithSources("person.hxx"),
//	    gen.WithDatabases("pgsql", "sqlite"),
//	    gen.WithFeatures(gen.FeatureQuery, gen.FeatureSchema),
//	)
package compiler

import (
	"fmt"

	"github.com/syssam/odbgen/compiler/gen"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/graph"
	"github.com/syssam/odbgen/project"
)

// Result is the outcome of one generation request.
type Result struct {
	Resolved *gen.Resolved
	Graph    *graph.Graph
	// Sources are the generated files compiled into the consuming targets.
	Sources []string
}

// Generate resolves a request, builds its graph and applies the target
// mutations to p. Nothing is executed; run Result.Graph with package engine
// or render it for a host build engine.
func Generate(p *project.Project, d *locate.Result, opts ...gen.Option) (*Result, error) {
	req, err := gen.NewRequest(opts...)
	if err != nil {
		return nil, err
	}
	return GenerateRequest(p, d, req)
}

// GenerateRequest is like Generate for a request built by the caller.
func GenerateRequest(p *project.Project, d *locate.Result, req *gen.Request) (*Result, error) {
	r, err := gen.Resolve(req, p, d)
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(r, p, d)
	if err != nil {
		return nil, err
	}
	if err := g.Apply(p); err != nil {
		return nil, fmt.Errorf("odb generation for %v: %w", r.Targets, err)
	}
	return &Result{Resolved: r, Graph: g, Sources: sources(g)}, nil
}

// Plan resolves every request against the same project, merges their
// graphs and applies the merged mutations. Requests that declare the same
// output or name a configured target are rejected before p is modified.
func Plan(p *project.Project, d *locate.Result, reqs ...*gen.Request) (*graph.Graph, []*Result, error) {
	results := make([]*Result, 0, len(reqs))
	graphs := make([]*graph.Graph, 0, len(reqs))
	for i, req := range reqs {
		r, err := gen.Resolve(req, p, d)
		if err != nil {
			return nil, nil, fmt.Errorf("request %d: %w", i, err)
		}
		g, err := graph.Build(r, p, d)
		if err != nil {
			return nil, nil, fmt.Errorf("request %d: %w", i, err)
		}
		results = append(results, &Result{Resolved: r, Graph: g, Sources: sources(g)})
		graphs = append(graphs, g)
	}
	g, err := graph.Merge(graphs...)
	if err != nil {
		return nil, nil, err
	}
	if err := g.Apply(p); err != nil {
		return nil, nil, err
	}
	return g, results, nil
}

func sources(g *graph.Graph) []string {
	var out []string
	for _, t := range g.Tasks {
		out = append(out, t.Sources...)
	}
	return out
}
