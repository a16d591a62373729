// Package graph builds the declarative build graph that ties ODB compiler
// runs to the targets compiling their output.
//
// # Graph Structure
//
// A Graph holds three kinds of nodes:
//
//   - Task: one compiler invocation with declared inputs and outputs
//   - Group: a barrier per consuming target, done when its tasks are done
//   - Mutation: sources, include directories, links and dependencies added
//     to a consuming target
//
// Build produces one task per model header, or a single batched task when
// the request asks for all inputs at once:
//
//	g, err := graph.Build(resolved, p, discovery)
//	if err != nil {
//	    return err
//	}
//	if err := g.Apply(p); err != nil {
//	    return err
//	}
//
// # Validation
//
// Every output path has exactly one writer. Build and Merge reject graphs
// that violate this, so conflicting requests fail at configuration time
// instead of racing at build time.
//
// # Rendering
//
// A graph does not know how it is executed. Renderers write it for a host
// engine (ninja) or as data (yaml, json); package engine executes it
// directly.
package graph
