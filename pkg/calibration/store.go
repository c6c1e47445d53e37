package calibration

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/teslashibe/go-rangefinder/internal/log"
)

// DefaultPath is where the calibration file lives relative to the working
// directory, next to config.yml.
const DefaultPath = "config/calibration.json"

// Store reads and writes a calibration table as a JSON object keyed by
// class name. The file is meant to be human-readable and hand-editable;
// deleting it resets every class to the configured defaults.
type Store struct {
	path   string
	logger *slog.Logger

	// serializes writers so concurrent saves never interleave temp files
	mu sync.Mutex
}

// NewStore creates a store backed by path. The file does not need to exist.
func NewStore(path string, logger *slog.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path:   filepath.Clean(path),
		logger: log.Or(logger, "calibration"),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted table. Missing, unreadable or corrupt files
// yield an empty table and a warning; Load never fails.
func (s *Store) Load() Table {
	table, err := s.Read()
	if err != nil {
		s.logger.Warn("calibration unavailable, using defaults", "path", s.path, "error", err)
		return Table{}
	}
	return table
}

// Read is Load without the fallback: it returns ErrStorageUnavailable
// (check with errors.Is) when the file cannot be used.
func (s *Store) Read() (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, storageError(err, "read calibration file")
	}

	table := Table{}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, storageError(err, "parse calibration file")
	}
	if table == nil {
		// a literal "null" document
		table = Table{}
	}

	if dropped := table.Sanitize(); len(dropped) > 0 {
		s.logger.Warn("ignoring invalid calibration entries", "path", s.path, "classes", dropped)
	}
	return table, nil
}

// Save writes the full table, replacing the file atomically.
func (s *Store) Save(table Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if table == nil {
		table = Table{}
	}
	data, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshal calibration")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return storageError(err, "create calibration directory")
	}

	// temp file + rename so a crash never leaves a half-written table
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return storageError(err, "write calibration temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return storageError(err, "replace calibration file")
	}

	s.logger.Debug("calibration saved", "path", s.path, "classes", len(table))
	return nil
}

// Remove deletes the calibration file. A missing file is not an error.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageError(err, "remove calibration file")
	}
	return nil
}
