package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"students-bot/internal/models"
)

var (
	ErrNotFound    = errors.New("student not found")
	ErrDuplicateID = errors.New("student id already exists")
	ErrInvalid     = errors.New("invalid student")
	ErrCorrupt     = errors.New("db file unparsable")
)

// document is the on-disk shape of the database file.
type document struct {
	Students []models.Student `json:"students"`
}

// FileStore keeps the whole collection in one JSON file. Every operation
// reads or rewrites the full file; mu serializes them so concurrent
// read-modify-write cycles cannot lose each other's updates.
type FileStore struct {
	path string
	log  *slog.Logger
	now  func() time.Time

	mu        sync.Mutex
	observers []func([]models.Student)
}

func NewFileStore(path string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{path: path, log: log.With("component", "store"), now: time.Now}, nil
}

func (s *FileStore) Path() string { return s.path }

// OnChange registers fn to receive a copy of the collection after every
// successful mutation. fn runs under the store lock: it must not block and
// must not call back into the store.
func (s *FileStore) OnChange(fn func([]models.Student)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *FileStore) Load() ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnlocked()
}

func (s *FileStore) Save(students []models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitUnlocked(students)
}

func (s *FileStore) Append(st models.Student) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	if indexOf(students, st.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, st.ID)
	}
	return s.commitUnlocked(append(students, st))
}

func (s *FileStore) FindByID(id string) (models.Student, error) {
	students, err := s.Load()
	if err != nil {
		return models.Student{}, err
	}
	i := indexOf(students, id)
	if i < 0 {
		return models.Student{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return students[i], nil
}

func (s *FileStore) UpdateStatus(id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	i := indexOf(students, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	students[i].Status = status
	return s.commitUnlocked(students)
}

func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	i := indexOf(students, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	students = append(students[:i], students[i+1:]...)
	return s.commitUnlocked(students)
}

// Backup writes a timestamped snapshot of the collection into dir and keeps
// only the newest keep snapshots (keep <= 0 disables pruning). An unparsable
// db file fails with ErrCorrupt and leaves existing snapshots untouched.
func (s *FileStore) Backup(dir string, keep int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.readUnlocked()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backup dir: %w", err)
	}
	name := filepath.Join(dir, "students-"+s.now().UTC().Format("20060102-150405")+".json")
	if err := writeAtomic(name, students); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if keep > 0 {
		if err := prune(dir, keep); err != nil {
			s.log.Warn("prune backups", "dir", dir, "err", err)
		}
	}
	return name, nil
}

func (s *FileStore) loadUnlocked() ([]models.Student, error) {
	students, err := s.readUnlocked()
	if errors.Is(err, ErrCorrupt) {
		// nothing valid was ever written, start fresh
		s.log.Warn("db file unparsable, treating as empty", "path", s.path, "err", err)
		return []models.Student{}, nil
	}
	return students, err
}

// readUnlocked is the strict read: a missing file is empty, a malformed one
// is ErrCorrupt.
func (s *FileStore) readUnlocked() ([]models.Student, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Student{}, nil
		}
		return nil, fmt.Errorf("read db: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if doc.Students == nil {
		doc.Students = []models.Student{}
	}
	return doc.Students, nil
}

func (s *FileStore) commitUnlocked(students []models.Student) error {
	if err := writeAtomic(s.path, students); err != nil {
		return fmt.Errorf("save db: %w", err)
	}
	for _, fn := range s.observers {
		fn(append([]models.Student(nil), students...))
	}
	return nil
}

// writeAtomic replaces path with the encoded collection: temp file in the
// same directory, fsync, rename.
func writeAtomic(path string, students []models.Student) error {
	if students == nil {
		students = []models.Student{}
	}
	data, err := json.MarshalIndent(document{Students: students}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".students-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	ok = true
	return nil
}

func prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, "students-") && strings.HasSuffix(n, ".json") {
			names = append(names, n)
		}
	}
	if len(names) <= keep {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(students []models.Student, id string) int {
	for i, st := range students {
		if st.ID == id {
			return i
		}
	}
	return -1
}
