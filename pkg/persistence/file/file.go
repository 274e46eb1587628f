// Package file provides file-based persistence, one JSON document per entity.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/crmflow/pkg/persistence"
)

var ErrInvalidPathSegment = errors.New("invalid path segment")

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root             string
	workflowRepo     *WorkflowRepository
	recordRepo       *RecordRepository
	taskRepo         *TaskRepository
	notificationRepo *NotificationRepository
	runRepo          *RunRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	store := &store{root: cleanRoot}

	return &Persistence{
		root:             cleanRoot,
		workflowRepo:     &WorkflowRepository{store: store},
		recordRepo:       &RecordRepository{store: store},
		taskRepo:         &TaskRepository{store: store},
		notificationRepo: &NotificationRepository{store: store},
		runRepo:          &RunRepository{store: store},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

//nolint:ireturn // persistence.Persistence contract
func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

//nolint:ireturn // persistence.Persistence contract
func (fp *Persistence) Records() persistence.RecordRepository {
	return fp.recordRepo
}

//nolint:ireturn // persistence.Persistence contract
func (fp *Persistence) Tasks() persistence.TaskRepository {
	return fp.taskRepo
}

//nolint:ireturn // persistence.Persistence contract
func (fp *Persistence) Notifications() persistence.NotificationRepository {
	return fp.notificationRepo
}

//nolint:ireturn // persistence.Persistence contract
func (fp *Persistence) Runs() persistence.RunRepository {
	return fp.runRepo
}

// store serializes access to the JSON documents below root.
type store struct {
	root string
	mu   sync.RWMutex
}

func (s *store) path(segments ...string) (string, error) {
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPathSegment, segment)
		}
	}

	return filepath.Join(append([]string{s.root}, segments...)...), nil
}

// read decodes the document at segments into out. It returns fs.ErrNotExist when missing.
func (s *store) read(out any, segments ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readUnlocked(out, segments...)
}

func (s *store) readUnlocked(out any, segments ...string) error {
	filePath, err := s.path(segments...)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(filepath.Clean(filePath + ".json"))
	if err != nil {
		return err //nolint:wrapcheck // callers match fs.ErrNotExist
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return nil
}

func (s *store) write(value any, segments ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath, err := s.path(segments...)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(filePath), 0o750)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filePath, err)
	}

	err = os.WriteFile(filePath+".json", data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	return nil
}

func (s *store) remove(segments ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath, err := s.path(segments...)
	if err != nil {
		return err
	}

	return os.Remove(filePath + ".json") //nolint:wrapcheck // callers match fs.ErrNotExist
}

// list returns the names (without extension) of the documents in a directory.
func (s *store) list(segments ...string) ([]string, error) {
	dir, err := s.path(segments...)
	if err != nil {
		return nil, err
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		names = append(names, strings.TrimSuffix(file, ".json"))
	}

	return names, nil
}

// dirs returns the sub directories of a directory, empty when it does not exist.
func (s *store) dirs(segments ...string) ([]string, error) {
	dir, err := s.path(segments...)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func readAll[T any](s *store, segments ...string) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.list(segments...)
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(names))

	for _, name := range names {
		var item T

		err := s.readUnlocked(&item, append(segments, name)...)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, err
		}

		items = append(items, &item)
	}

	return items, nil
}
