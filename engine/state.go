package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spaolacci/murmur3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/odbgen/graph"
)

const stateVersion = 1

// record is the persisted outcome of the last successful run of a task.
type record struct {
	Signature uint64    `msgpack:"sig"`
	RunID     string    `msgpack:"run"`
	Finished  time.Time `msgpack:"finished"`
}

type stateFile struct {
	Version int               `msgpack:"version"`
	Tasks   map[string]record `msgpack:"tasks"`
}

// loadState reads the state file at path. A missing file, or one written by
// another version, yields an empty state so every task is considered stale.
func loadState(path string) (map[string]record, error) {
	tasks := make(map[string]record)
	if path == "" {
		return tasks, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return tasks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var sf stateFile
	if err := msgpack.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	if sf.Version != stateVersion || sf.Tasks == nil {
		return tasks, nil
	}
	return sf.Tasks, nil
}

// saveState writes the state atomically.
func saveState(path string, tasks map[string]record) error {
	if path == "" {
		return nil
	}
	b, err := msgpack.Marshal(stateFile{Version: stateVersion, Tasks: tasks})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, path)
}

// signature hashes everything that defines a task besides file contents:
// the command line and the declared inputs and outputs.
func signature(t *graph.Task) uint64 {
	h := murmur3.New64()
	for _, list := range [][]string{t.Command, t.Inputs, t.Outputs} {
		for _, s := range list {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return h.Sum64()
}

// staleReason returns why t must run, or "" when it is up to date. A task
// is stale without a record of a successful run, when its signature
// changed, or when an output is missing or older than any input.
func staleReason(t *graph.Task, rec record, ok bool) string {
	if !ok {
		return "no previous run"
	}
	if rec.Signature != signature(t) {
		return "command changed"
	}
	var newestInput time.Time
	for _, in := range t.Inputs {
		st, err := os.Stat(in)
		if err != nil {
			return "input missing"
		}
		if st.ModTime().After(newestInput) {
			newestInput = st.ModTime()
		}
	}
	for _, out := range t.Outputs {
		st, err := os.Stat(out)
		if err != nil {
			return "output missing"
		}
		if st.ModTime().Before(newestInput) {
			return "output older than input"
		}
	}
	return ""
}
