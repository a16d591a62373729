// Package engine executes a build graph directly. It is a reference host
// engine: tasks run as subprocesses, in parallel up to a worker limit, and
// only when stale.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/odbgen"
	"github.com/syssam/odbgen/graph"
)

// State of a task within one run.
type State uint8

const (
	StateStale State = iota
	StateRunning
	StateDone
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStale:
		return "stale"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// Runner executes argv and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Engine runs build graphs. Create it with New.
type Engine struct {
	workers   int
	statePath string
	run       Runner
	logger    *slog.Logger
	debounce  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers limits the number of concurrent compiler runs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithStateFile persists task signatures to path between runs. Without a
// state file every task runs on every invocation.
func WithStateFile(path string) Option {
	return func(e *Engine) { e.statePath = path }
}

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(e *Engine) {
		if run != nil {
			e.run = run
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDebounce sets how long Watch waits for further changes before
// running.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// New returns an engine using GOMAXPROCS workers.
func New(opts ...Option) *Engine {
	e := &Engine{
		workers:  runtime.GOMAXPROCS(0),
		run:      runCommand,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes one run.
type Report struct {
	RunID   string
	States  map[string]State
	Ran     []string
	Skipped []string
	Elapsed time.Duration
}

// Failed returns the ids of the failed tasks.
func (r *Report) Failed() []string {
	var ids []string
	for id, s := range r.States {
		if s == StateFailed {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type execution struct {
	*Engine
	id       string
	declared map[string]bool

	mu      sync.Mutex
	report  *Report
	records map[string]record
}

func (r *execution) setState(id string, s State) {
	r.mu.Lock()
	r.report.States[id] = s
	r.mu.Unlock()
}

// Run executes every stale task of g. Output directories are created once
// before any task starts. The first failure cancels the remaining tasks;
// a failed task never keeps a record, so the next run retries it.
func (e *Engine) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	start := time.Now()
	r := &execution{
		Engine:   e,
		id:       uuid.NewString(),
		declared: make(map[string]bool),
		report:   &Report{States: make(map[string]State, len(g.Tasks))},
	}
	r.report.RunID = r.id
	logger := e.logger.With("run", r.id)

	for _, dir := range g.OutputDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return r.report, fmt.Errorf("create output directory: %w", err)
		}
	}
	records, err := loadState(e.statePath)
	if err != nil {
		return r.report, err
	}
	r.records = records

	var stale []*graph.Task
	for _, t := range g.Tasks {
		for _, out := range t.Outputs {
			r.declared[out] = true
		}
		rec, ok := records[t.ID]
		if reason := staleReason(t, rec, ok); reason != "" {
			logger.Debug("task is stale", "task", t.ID, "reason", reason)
			r.report.States[t.ID] = StateStale
			stale = append(stale, t)
			continue
		}
		r.report.States[t.ID] = StateDone
		r.report.Skipped = append(r.report.Skipped, t.ID)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for _, t := range stale {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return r.execute(ctx, logger, t)
			}
		})
	}
	err = eg.Wait()

	if serr := saveState(e.statePath, r.records); serr != nil {
		err = errors.Join(err, serr)
	}
	slices.Sort(r.report.Ran)
	r.report.Elapsed = time.Since(start)
	logger.Info("odb run finished", "ran", len(r.report.Ran), "skipped", len(r.report.Skipped), "elapsed", r.report.Elapsed, "error", err)
	return r.report, err
}

func (r *execution) execute(ctx context.Context, logger *slog.Logger, t *graph.Task) error {
	if len(t.Command) == 0 {
		r.fail(t.ID)
		return odbgen.NewValidationError("task", t.ID, "empty command")
	}
	r.setState(t.ID, StateRunning)
	logger.Info("running odb", "task", t.ID, "inputs", t.Inputs)
	// Modification times are compared at second granularity so coarse
	// filesystem clocks do not hide files written by this run. A leftover
	// <stem>-* file modified earlier within the same second is therefore
	// also reported as unexpected; older leftovers are ignored.
	started := time.Now().Truncate(time.Second)

	out, err := r.run(ctx, t.Command[0], t.Command[1:]...)
	if err != nil {
		r.fail(t.ID)
		ierr := &odbgen.InvocationError{Task: t.ID, Output: string(out), Cause: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ierr.ExitCode = exitErr.ExitCode()
		}
		return ierr
	}
	if err := r.verify(t, started); err != nil {
		r.fail(t.ID)
		return err
	}

	r.mu.Lock()
	r.records[t.ID] = record{Signature: signature(t), RunID: r.id, Finished: time.Now()}
	r.report.States[t.ID] = StateDone
	r.report.Ran = append(r.report.Ran, t.ID)
	r.mu.Unlock()
	return nil
}

func (r *execution) fail(id string) {
	r.mu.Lock()
	delete(r.records, id)
	r.report.States[id] = StateFailed
	r.mu.Unlock()
}

// verify compares what the compiler wrote with the declared outputs of t.
// Files named after the task's inputs that were written during the run but
// are declared by no task and match no side file pattern are unexpected.
func (r *execution) verify(t *graph.Task, started time.Time) error {
	mismatch := &odbgen.PredictionMismatchError{Task: t.ID}
	dirs := make(map[string]bool)
	for _, out := range t.Outputs {
		dirs[filepath.Dir(out)] = true
		if _, err := os.Stat(out); err != nil {
			mismatch.Missing = append(mismatch.Missing, out)
		}
	}
	stems := t.Stems()
	for dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("verify outputs of %s: %w", t.ID, err)
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() || r.declared[path] || !ownedBy(entry.Name(), stems) || sideFile(path, t.SideFiles) {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().Before(started) {
				continue
			}
			mismatch.Unexpected = append(mismatch.Unexpected, path)
		}
	}
	if len(mismatch.Missing) == 0 && len(mismatch.Unexpected) == 0 {
		return nil
	}
	slices.Sort(mismatch.Unexpected)
	return mismatch
}

func ownedBy(name string, stems []string) bool {
	for _, stem := range stems {
		if strings.HasPrefix(name, stem+"-") || strings.HasPrefix(name, stem+".") {
			return true
		}
	}
	return false
}

func sideFile(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	return false
}
