// Package storage holds the JSON file persistence used by the local contact
// and profile stores.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore reads and writes one JSON document. Saves are atomic: the data
// goes to a temp file that is synced and renamed over the target.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewJSONStore creates the data directory if needed. The file itself is
// created on first Save.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return &JSONStore{filePath: filepath.Join(dataDir, filename)}, nil
}

func (s *JSONStore) Path() string {
	return s.filePath
}

// Load decodes the file into data. A missing file leaves data untouched.
func (s *JSONStore) Load(data any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(data)
}

// Save replaces the file contents with data. Contacts are personal data, so
// the file is only readable by the owner.
func (s *JSONStore) Save(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempFile := s.filePath + ".tmp"
	file, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.filePath)
}
