// Package connections manages the persisted registry of remote target
// profiles.
package connections

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raspdbg/raspdbg/internal/config"
)

// DefaultPort is the SSH port used when a profile does not set one.
const DefaultPort = 22

var (
	// ErrNotFound indicates the named profile does not exist.
	ErrNotFound = errors.New("connection not found")
	// ErrDuplicate indicates a profile with the same name already exists.
	ErrDuplicate = errors.New("connection already exists")
	// ErrEmpty indicates the registry has no profiles.
	ErrEmpty = errors.New("no connections configured")
)

// Profile describes one remote target. Names are unique
// case-insensitively. KeyPath references the SSH private key; an
// optional passphrase for it lives in the OS keyring under the profile
// name, never in this file.
type Profile struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port,omitempty"`
	User    string `json:"user"`
	KeyPath string `json:"key_path"`
	Default bool   `json:"default"`
}

// Address returns the host:port dial address.
func (p *Profile) Address() string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", p.Host, port)
}

// Registry is the loaded profile collection bound to its file.
type Registry struct {
	profiles []Profile
	filePath string
}

// Load loads the registry from the default per-user path.
func Load() (*Registry, error) {
	paths := config.GetPaths()
	return LoadFrom(paths.RegistryFile)
}

// LoadFrom loads the registry from a specific path. An absent file is
// an empty registry, not an error. The default invariant is repaired on
// every load: a non-empty set always ends up with exactly one default.
func LoadFrom(path string) (*Registry, error) {
	r := &Registry{filePath: path}

	// #nosec G304 - path is the registry file path (controlled, from user config directory)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read connection registry: %w", err)
	}

	if err := json.Unmarshal(data, &r.profiles); err != nil {
		return nil, fmt.Errorf("failed to parse connection registry: %w", err)
	}

	r.repairDefault()
	return r, nil
}

// Save writes the registry with pretty formatting. The default
// invariant is repaired again before writing; this is a standing repair,
// not a one-time migration, because the file can be edited by hand.
func (r *Registry) Save() error {
	if r.filePath == "" {
		return errors.New("registry file path not set")
	}

	r.repairDefault()

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(r.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal connection registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(r.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write connection registry: %w", err)
	}

	return nil
}

// repairDefault enforces "exactly one default when non-empty". With no
// default set, the profile with the lowest case-folded name is
// promoted; with several set, the lowest-named of them wins.
func (r *Registry) repairDefault() {
	if len(r.profiles) == 0 {
		return
	}

	var defaults []int
	for i := range r.profiles {
		if r.profiles[i].Default {
			defaults = append(defaults, i)
		}
	}

	switch len(defaults) {
	case 1:
		return
	case 0:
		lowest := 0
		for i := 1; i < len(r.profiles); i++ {
			if foldLess(r.profiles[i].Name, r.profiles[lowest].Name) {
				lowest = i
			}
		}
		r.profiles[lowest].Default = true
	default:
		keep := defaults[0]
		for _, i := range defaults[1:] {
			if foldLess(r.profiles[i].Name, r.profiles[keep].Name) {
				keep = i
			}
		}
		for _, i := range defaults {
			r.profiles[i].Default = i == keep
		}
	}
}

func foldLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// List returns the profiles sorted by case-folded name.
func (r *Registry) List() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	sort.Slice(out, func(i, j int) bool {
		return foldLess(out[i].Name, out[j].Name)
	})
	return out
}

// Len returns the number of profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Get returns a profile by name, case-insensitively.
func (r *Registry) Get(name string) (*Profile, error) {
	for i := range r.profiles {
		if strings.EqualFold(r.profiles[i].Name, name) {
			return &r.profiles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// GetDefault returns the default profile.
func (r *Registry) GetDefault() (*Profile, error) {
	if len(r.profiles) == 0 {
		return nil, ErrEmpty
	}
	for i := range r.profiles {
		if r.profiles[i].Default {
			return &r.profiles[i], nil
		}
	}
	// repairDefault runs on every load and save, so this is unreachable
	// for a registry obtained through them.
	return nil, errors.New("no default connection set")
}

// Add appends a new profile. The first profile added becomes the
// default.
func (r *Registry) Add(p Profile) error {
	if p.Name == "" {
		return errors.New("connection name is required")
	}
	if p.Host == "" {
		return errors.New("connection host is required")
	}
	if p.User == "" {
		return errors.New("connection user is required")
	}

	for i := range r.profiles {
		if strings.EqualFold(r.profiles[i].Name, p.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicate, p.Name)
		}
	}

	if len(r.profiles) == 0 {
		p.Default = true
	} else if p.Default {
		for i := range r.profiles {
			r.profiles[i].Default = false
		}
	}

	r.profiles = append(r.profiles, p)
	return nil
}

// Remove deletes a profile by name. Removing the default promotes a
// new one via the repair invariant.
func (r *Registry) Remove(name string) error {
	for i := range r.profiles {
		if strings.EqualFold(r.profiles[i].Name, name) {
			r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
			r.repairDefault()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// SetDefault marks the named profile as the default.
func (r *Registry) SetDefault(name string) error {
	target, err := r.Get(name)
	if err != nil {
		return err
	}
	for i := range r.profiles {
		r.profiles[i].Default = false
	}
	target.Default = true
	return nil
}

// FilePath returns the path this registry is bound to.
func (r *Registry) FilePath() string {
	return r.filePath
}
