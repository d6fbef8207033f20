// Package transfer moves a whole task collection in and out as one JSON array.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"todo/internal/collection"
	"todo/internal/schema"
	"todo/internal/service"
)

// Mode selects how an import reaches the store.
type Mode int

const (
	// ModeReplace swaps the whole collection, keeping ids and flags.
	// Needs a store that implements service.Replacer.
	ModeReplace Mode = iota
	// ModeRecreate creates each record in order. Imported ids are ignored.
	ModeRecreate
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeRecreate:
		return "recreate"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFor returns ModeReplace when svc can replace its collection and
// ModeRecreate otherwise.
func ModeFor(svc service.Service) Mode {
	if _, ok := svc.(service.Replacer); ok {
		return ModeReplace
	}
	return ModeRecreate
}

// Encode writes tasks as an indented JSON array followed by a newline.
func Encode(w io.Writer, tasks []service.Task) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return nil
}

// ExportFile is a temporary export document. Close removes it.
type ExportFile struct {
	path string
}

// ExportName returns the file name an export made at t uses.
func ExportName(t time.Time) string {
	return fmt.Sprintf("todo_export_%d.json", t.Unix())
}

// Export writes tasks to dir/todo_export_<unix-seconds>.json.
// An empty dir means os.TempDir(). The caller must Close the result.
func Export(tasks []service.Task, dir string, now time.Time) (*ExportFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, ExportName(now))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	if err := Encode(f, tasks); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close export file: %w", err)
	}
	return &ExportFile{path: path}, nil
}

// Path returns the location of the export document.
func (e *ExportFile) Path() string {
	return e.path
}

// WriteTo copies the export document to w.
func (e *ExportFile) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return 0, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()
	return io.Copy(w, f)
}

// Close removes the export document. Calling it again is a no-op.
func (e *ExportFile) Close() error {
	if e.path == "" {
		return nil
	}
	err := os.Remove(e.path)
	e.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove export file: %w", err)
	}
	return nil
}

// Result summarizes a finished import.
type Result struct {
	Mode    Mode
	Applied int
	Total   int
}

// PartialError reports an import that stopped part way.
// Records before the failing one stay in the store.
type PartialError struct {
	Applied int
	Total   int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("import stopped after %d of %d tasks: %v", e.Applied, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Import decodes a task array from r and loads it into the collection's
// store using mode, then refreshes the collection. The whole document is
// validated before the first store call.
func Import(ctx context.Context, c *collection.Collection, r io.Reader, mode Mode) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Mode: mode}, fmt.Errorf("read import: %w", err)
	}
	tasks, err := schema.DecodeTasks(data, "import")
	if err != nil {
		return Result{Mode: mode}, err
	}

	res := Result{Mode: mode, Total: len(tasks)}

	var applyErr error
	switch mode {
	case ModeReplace:
		applyErr = c.Replace(ctx, tasks)
		if applyErr == nil || stale(applyErr) {
			res.Applied = len(tasks)
		}
	case ModeRecreate:
		res.Applied, applyErr = c.CreateMany(ctx, tasks)
	default:
		return res, fmt.Errorf("unknown import mode %v", mode)
	}

	var oe *collection.OpError
	if applyErr != nil && res.Applied > 0 && !stale(applyErr) && errors.As(applyErr, &oe) {
		return res, &PartialError{Applied: res.Applied, Total: res.Total, Err: oe.Err}
	}
	return res, applyErr
}

// stale reports whether err is a refresh failure after an applied change.
func stale(err error) bool {
	var oe *collection.OpError
	return errors.As(err, &oe) && oe.Applied
}
