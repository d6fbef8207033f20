// Package filestore implements service.Service on a single local JSON document.
//
// The whole collection is stored as one JSON array. Every mutation reads the
// document, applies the change and rewrites the file atomically (temp file in
// the same directory, fsync, rename), so a concurrent List sees either the old
// or the new collection and never a partial write.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"todo/internal/schema"
	"todo/internal/service"
)

// FileName is the well-known data file name inside the data directory.
const FileName = "todo_list.json"

// Store implements service.Service and service.Replacer on a JSON file.
type Store struct {
	path  string
	mu    sync.Mutex
	newID func() service.ID
}

// New creates a store backed by the file at path.
// The file and its directory are created on the first write.
func New(path string) *Store {
	return &Store{
		path:  path,
		newID: func() service.ID { return service.ID(uuid.NewString()) },
	}
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// List implements service.Service.
func (s *Store) List(ctx context.Context) ([]service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Create implements service.Service.
func (s *Store) Create(ctx context.Context, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return service.Task{}, err
	}
	task := service.Task{ID: s.newID(), Text: text, Completed: completed}
	tasks = append(tasks, task)
	if err := s.save(tasks); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// Update implements service.Service.
func (s *Store) Update(ctx context.Context, id service.ID, text string, completed bool) (service.Task, error) {
	text, err := service.NormalizeText(text)
	if err != nil {
		return service.Task{}, err
	}
	return s.mutate(id, func(t *service.Task) {
		t.Text = text
		t.Completed = completed
	})
}

// Toggle implements service.Service.
func (s *Store) Toggle(ctx context.Context, id service.ID) (service.Task, error) {
	return s.mutate(id, func(t *service.Task) {
		t.Completed = !t.Completed
	})
}

// Delete implements service.Service.
func (s *Store) Delete(ctx context.Context, id service.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return s.save(append(tasks[:i], tasks[i+1:]...))
		}
	}
	return &service.NotFoundError{ID: id}
}

// Replace implements service.Replacer. Ids and flags are kept as given.
func (s *Store) Replace(ctx context.Context, tasks []service.Task) error {
	valid, err := service.ValidateCollection(tasks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(valid)
}

func (s *Store) mutate(id service.ID, apply func(*service.Task)) (service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return service.Task{}, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			apply(&tasks[i])
			if err := s.save(tasks); err != nil {
				return service.Task{}, err
			}
			return tasks[i], nil
		}
	}
	return service.Task{}, &service.NotFoundError{ID: id}
}

// load reads the whole document. A missing file is an empty collection.
func (s *Store) load() ([]service.Task, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []service.Task{}, nil
	}
	if err != nil {
		return nil, &service.TransportError{Op: "read data file", Err: err}
	}
	return schema.DecodeTasks(data, "data file")
}

// save writes the whole document atomically with 2-space indentation.
func (s *Store) save(tasks []service.Task) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data, 0600); err != nil {
		return &service.TransportError{Op: "write data file", Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
