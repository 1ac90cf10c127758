package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// document is the persisted layout of the file backend: one JSON document
// holding every printer record plus the static overrides map.
type document struct {
	Printers  map[string]Record `json:"printers"`
	Overrides map[string]string `json:"overrides"`
}

// FileStore materializes the pool as a local JSON document. It is the
// default backend and doubles as an offline cache of the remote pool.
type FileStore struct {
	path string

	mu     sync.RWMutex
	doc    document
	loaded bool
}

// NewFileStore creates a file-backed store at path. The document is loaded
// lazily on first access; a missing file is an empty pool.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the record for a printer, or an empty record if absent.
func (s *FileStore) Get(ctx context.Context, printerID string) (Record, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if err := s.load(); err != nil {
			return Record{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.doc.Printers[printerID]
	if !ok {
		return EmptyRecord(), nil
	}
	return rec.Clone(), nil
}

// Put replaces the record for a printer and persists the document.
func (s *FileStore) Put(ctx context.Context, printerID string, rec Record) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if err := s.load(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Printers[printerID] = rec.Clone()
	return s.save()
}

// Overrides returns the static overrides map.
func (s *FileStore) Overrides(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if err := s.load(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.doc.Overrides))
	for k, v := range s.doc.Overrides {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	doc := document{
		Printers:  map[string]Record{},
		Overrides: map[string]string{},
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		// Empty pool until the first Put.
	case err != nil:
		return fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.path, err)
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrUnavailable, s.path, err)
		}
		if doc.Printers == nil {
			doc.Printers = map[string]Record{}
		}
		if doc.Overrides == nil {
			doc.Overrides = map[string]string{}
		}
	}

	s.doc = doc
	s.loaded = true
	return nil
}

// save writes the document atomically: temp file in the same directory, then
// rename over the target.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".pool-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
