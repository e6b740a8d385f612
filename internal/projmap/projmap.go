// Package projmap persists per-project deployment settings so repeated
// deploys of the same project reuse the previous choices.
package projmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FileName is the settings file name inside the data directory.
const FileName = "projects.json"

// Settings is the remembered configuration for one project file.
type Settings struct {
	// ID is a stable identifier assigned on first save.
	ID string `json:"id"`
	// ProjectPath is the absolute path of the project file.
	ProjectPath string `json:"projectPath"`
	// Connection is the connection profile name. Empty means the
	// registry default.
	Connection string `json:"connection,omitempty"`
	// Configuration is the build configuration (Debug/Release).
	Configuration string `json:"configuration,omitempty"`
	// Args is the program argument vector.
	Args []string `json:"args,omitempty"`
	// StopAtEntry pauses the debugger at the entry point.
	StopAtEntry bool `json:"stopAtEntry,omitempty"`
}

// Store keeps project settings in one JSON file.
type Store struct {
	filePath string
	entries  map[string]*Settings
}

// Load reads the store, starting empty when the file is absent.
func Load(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		entries:  make(map[string]*Settings),
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project settings: %w", err)
	}

	var list []*Settings
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing project settings %s: %w", filePath, err)
	}
	for _, e := range list {
		s.entries[keyFor(e.ProjectPath)] = e
	}
	return s, nil
}

// Get returns the settings for projectPath, or nil when none are
// remembered.
func (s *Store) Get(projectPath string) *Settings {
	return s.entries[keyFor(projectPath)]
}

// Put remembers settings for their project path, assigning an ID when
// the entry is new.
func (s *Store) Put(settings *Settings) {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	s.entries[keyFor(settings.ProjectPath)] = settings
}

// Len reports how many projects are remembered.
func (s *Store) Len() int {
	return len(s.entries)
}

// Save writes the store, dropping entries whose project file no longer
// exists so the file does not accumulate dead projects.
func (s *Store) Save() error {
	s.prune()

	list := make([]*Settings, 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ProjectPath < list[j].ProjectPath
	})

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling project settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing project settings: %w", err)
	}
	return nil
}

func (s *Store) prune() {
	for key, e := range s.entries {
		if _, err := os.Stat(e.ProjectPath); errors.Is(err, os.ErrNotExist) {
			delete(s.entries, key)
		}
	}
}

func keyFor(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	return strings.ToLower(filepath.Clean(abs))
}
