// odbgen plans and runs ODB compiler invocations for a project described
// in odbgen.yaml.
//
//	odbgen locate
//	odbgen plan --format ninja --output build/odb.ninja
//	odbgen build --jobs 8
//	odbgen watch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/syssam/odbgen/compiler"
	"github.com/syssam/odbgen/compiler/load"
	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/engine"
	"github.com/syssam/odbgen/graph"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "odbgen:", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "odbgen",
		Usage: "wire the ODB compiler into a native build",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   load.DefaultFile,
				Usage:   "project configuration `FILE`",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug messages",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "locate",
				Usage:  "report the compiler and runtime libraries found",
				Action: locateAction,
			},
			{
				Name:  "plan",
				Usage: "write the build graph",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: graph.FormatNinja, Usage: "ninja, yaml or json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to `FILE` instead of stdout"},
				},
				Action: planAction,
			},
			{
				Name:  "build",
				Usage: "run every stale compiler invocation",
				Flags: engineFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := newSession(ctx, cmd)
					if err != nil {
						return err
					}
					report, err := s.engine(cmd).Run(ctx, s.graph)
					printReport(cmd.Root().Writer, report)
					return err
				},
			},
			{
				Name:  "watch",
				Usage: "rebuild whenever a model header changes",
				Flags: engineFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := newSession(ctx, cmd)
					if err != nil {
						return err
					}
					return s.engine(cmd).Watch(ctx, s.graph, func(report *engine.Report, err error) {
						printReport(cmd.Root().Writer, report)
						if err != nil {
							slog.Error("build failed", "error", err)
						}
					})
				},
			},
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "number of parallel compiler runs"},
		&cli.StringFlag{Name: "state", Usage: "state `FILE` recording completed runs"},
	}
}

// session is a loaded configuration with its planned graph.
type session struct {
	cfg   *load.Config
	graph *graph.Graph
}

func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := load.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	discovery, err := locate.New().Locate(ctx, cfg.LocateOptions())
	if err != nil {
		return nil, err
	}
	p, err := cfg.NewProject()
	if err != nil {
		return nil, err
	}
	reqs, err := cfg.NewRequests()
	if err != nil {
		return nil, err
	}
	g, _, err := compiler.Plan(p, discovery, reqs...)
	if err != nil {
		return nil, err
	}
	slog.Debug("planned build graph", "project", p.Name, "tasks", len(g.Tasks))
	return &session{cfg: cfg, graph: g}, nil
}

func (s *session) engine(cmd *cli.Command) *engine.Engine {
	workers := s.cfg.Build.Workers
	if j := cmd.Int("jobs"); j > 0 {
		workers = j
	}
	state := s.cfg.Build.StateFile
	if v := cmd.String("state"); v != "" {
		state = v
	}
	return engine.New(
		engine.WithWorkers(workers),
		engine.WithStateFile(state),
		engine.WithLogger(slog.Default()),
	)
}

func locateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := load.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	r, err := locate.New().Locate(ctx, cfg.LocateOptions())
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	if !r.Found() {
		fmt.Fprintln(w, "odb: not found")
		return nil
	}
	fmt.Fprintf(w, "odb: %s (%s)\n", r.Executable, r.Version)
	fmt.Fprintf(w, "include: %s\n", r.IncludeDir)
	fmt.Fprintf(w, "library: %s\n", r.Library)
	names := make([]string, 0, len(r.Components))
	for name := range r.Components {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := r.Components[name]
		status := "not found"
		if c.Found {
			status = c.LibraryPath
		}
		label := name
		if c.DisplayName != "" {
			label = fmt.Sprintf("%s (%s)", c.DisplayName, name)
		}
		fmt.Fprintf(w, "%s: %s\n", label, status)
	}
	return nil
}

func planAction(ctx context.Context, cmd *cli.Command) error {
	renderer, err := graph.RendererFor(cmd.String("format"))
	if err != nil {
		return err
	}
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	out := cmd.String("output")
	if out == "" {
		return renderer.Render(cmd.Root().Writer, s.graph)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := renderer.Render(f, s.graph); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

func printReport(w io.Writer, r *engine.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "run %s: %d ran, %d up to date", r.RunID, len(r.Ran), len(r.Skipped))
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, ", %d failed %v", len(failed), failed)
	}
	fmt.Fprintf(w, " in %s\n", r.Elapsed.Round(time.Millisecond))
}
