// Package brands stores brand profiles as one pretty-printed JSON file per profile.
package brands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/brandmix/internal/shared"
)

var validID = regexp.MustCompile(`^[a-z0-9_-]+$`)

// FileStore keeps profiles under dir as <id>.json.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *log.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on first write.
func NewFileStore(dir string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FileStore{dir: dir, logger: logger}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: brand profile %q", shared.ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// List returns a summary of every stored profile, sorted by id.
//
// Unreadable files are logged and skipped. A missing directory yields an empty list.
func (s *FileStore) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read brand directory: %w", err)
	}

	summaries := []Summary{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		profile, err := s.Get(id)
		if err != nil {
			s.logger.Warn("skipping unreadable brand profile", "file", name, "error", err)
			continue
		}

		summary := Summary{ID: id, Name: profile.Name(), Description: profile.Description()}
		if summary.Name == "" {
			summary.Name = id
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get loads the profile stored under id.
func (s *FileStore) Get(id string) (*Profile, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: brand profile %q", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read brand profile: %w", err)
	}

	return ParseProfile(data)
}

// Create stores a new profile and returns its id.
//
// The name is required; a profile whose id already exists is rejected with [shared.ErrBrandExists].
func (s *FileStore) Create(p *Profile) (string, error) {
	if p == nil || p.Name() == "" {
		return "", fmt.Errorf("%w: brand name is required", shared.ErrValidation)
	}
	id := p.ID()
	if id == "" {
		return "", fmt.Errorf("%w: brand name %q has no usable characters", shared.ErrValidation, p.Name())
	}
	path, err := s.path(id)
	if err != nil {
		return "", err
	}

	data, err := encode(p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create brand directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", shared.ErrBrandExists, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create brand profile: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write brand profile: %w", err)
	}

	s.logger.Info("brand profile created", "id", id)
	return id, nil
}

// Update replaces the profile stored under id with p.
func (s *FileStore) Update(id string, p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: brand profile body is required", shared.ErrValidation)
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}

	data, err := encode(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: brand profile %q", shared.ErrNotFound, id)
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage brand profile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write brand profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write brand profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace brand profile: %w", err)
	}

	s.logger.Info("brand profile updated", "id", id)
	return nil
}

// Delete removes the profile stored under id.
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: brand profile %q", shared.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete brand profile: %w", err)
	}

	s.logger.Info("brand profile deleted", "id", id)
	return nil
}

func encode(p *Profile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode brand profile: %w", err)
	}
	return append(data, '\n'), nil
}
