package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	historyDir  = "arbor-history"
	currentFile = "arbor.json"
	lockFile    = ".arbor.lock"
)

// FSStore keeps each project under <dir>/<project>: one JSON file per
// history entry plus the current summary. The directory is locked for the
// lifetime of the store.
type FSStore struct {
	dir  string
	lock *os.File
}

// NewFSStore opens dir, creating it if needed. It fails with ErrLocked if
// another store holds the directory.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("board: dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create board directory: %w", err)
	}
	lock, err := acquireLock(filepath.Join(dir, lockFile))
	if err != nil {
		return nil, err
	}
	return &FSStore{dir: dir, lock: lock}, nil
}

// Dir returns the root directory.
func (s *FSStore) Dir() string { return s.dir }

func (s *FSStore) projectDir(project string) (string, error) {
	if project == "" || project != filepath.Base(project) || project == "." || project == ".." {
		return "", fmt.Errorf("board: invalid project name %q", project)
	}
	return filepath.Join(s.dir, project), nil
}

func (s *FSStore) Put(_ context.Context, project string, e Entry) error {
	dir, err := s.projectDir(project)
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, historyDir, strconv.Itoa(e.ID)+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	data, err = json.Marshal(e.Summary())
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, currentFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write current entry: %w", err)
	}
	return nil
}

func (s *FSStore) Current(_ context.Context, project string) (Entry, error) {
	dir, err := s.projectDir(project)
	if err != nil {
		return Entry{}, err
	}
	return readEntry(filepath.Join(dir, currentFile))
}

func (s *FSStore) Entries(_ context.Context, project string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		dir, err := s.projectDir(project)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		ids, err := historyIDs(filepath.Join(dir, historyDir))
		if err != nil {
			yield(Entry{}, err)
			return
		}
		for _, id := range ids {
			e, err := readEntry(filepath.Join(dir, historyDir, strconv.Itoa(id)+".json"))
			if !yield(e, err) {
				return
			}
		}
	}
}

// historyIDs lists the numeric entry files in ascending order.
func historyIDs(dir string) ([]int, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	var ids []int
	for _, f := range files {
		name, ok := strings.CutSuffix(f.Name(), ".json")
		if !ok || f.IsDir() {
			continue
		}
		if id, err := strconv.Atoi(name); err == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Entry{}, ErrNoEntries
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal entry %s: %w", filepath.Base(path), err)
	}
	return e, nil
}

func (s *FSStore) Clear(_ context.Context, project string) error {
	dir, err := s.projectDir(project)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear project: %w", err)
	}
	return nil
}

// Close releases the directory lock.
func (s *FSStore) Close() error {
	if s.lock == nil {
		return nil
	}
	err := releaseLock(s.lock)
	s.lock = nil
	if err != nil {
		return fmt.Errorf("failed to release board lock: %w", err)
	}
	return nil
}

var _ Store = (*FSStore)(nil)
