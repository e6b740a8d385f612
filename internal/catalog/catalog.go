// Package catalog provides the bundled SDK and device-model catalogs.
//
// Both catalogs ship inside the binary and are loaded exactly once on
// first access. They are immutable afterwards and safe for concurrent
// reads.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/blang/semver"
)

//go:embed assets/sdk-catalog.json
var embeddedSDKCatalog []byte

//go:embed assets/device-catalog.json
var embeddedDeviceCatalog []byte

// Architecture identifies a target CPU architecture.
type Architecture string

const (
	// ArchARM32 is 32-bit ARM (linux-arm).
	ArchARM32 Architecture = "arm32"
	// ArchARM64 is 64-bit ARM (linux-arm64).
	ArchARM64 Architecture = "arm64"
	// ArchAMD64 is 64-bit x86 (linux-x64).
	ArchAMD64 Architecture = "amd64"
)

// RuntimeID returns the .NET runtime identifier for the architecture.
func (a Architecture) RuntimeID() string {
	switch a {
	case ArchARM32:
		return "linux-arm"
	case ArchARM64:
		return "linux-arm64"
	case ArchAMD64:
		return "linux-x64"
	default:
		return ""
	}
}

// HostArchitecture returns the architecture of the local workstation.
func HostArchitecture() Architecture {
	switch runtime.GOARCH {
	case "arm":
		return ArchARM32
	case "arm64":
		return ArchARM64
	default:
		return ArchAMD64
	}
}

// Entry describes one SDK build known to the catalog.
// (Name, Architecture) pairs are unique; the same name may appear once
// per architecture.
type Entry struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Architecture Architecture `json:"architecture"`
	Link         string       `json:"link"`

	// Semver is Version parsed at load time.
	Semver semver.Version `json:"-"`
}

type sdkDocument struct {
	Entries []Entry `json:"entries"`
}

type deviceDocument struct {
	Models []struct {
		Model        string       `json:"model"`
		Architecture Architecture `json:"architecture"`
	} `json:"models"`
}

type entryKey struct {
	name string
	arch Architecture
}

// Catalog is the loaded, immutable catalog pair.
type Catalog struct {
	entries map[entryKey]Entry
	models  map[string]Architecture
}

var (
	loaded  atomic.Pointer[Catalog]
	loadMu  sync.Mutex
	loadErr error
)

// Get returns the process-wide catalog, loading it on first call.
// A missing or malformed embedded resource is a fatal initialization
// error with no fallback.
func Get() (*Catalog, error) {
	if c := loaded.Load(); c != nil {
		return c, nil
	}

	loadMu.Lock()
	defer loadMu.Unlock()

	if c := loaded.Load(); c != nil {
		return c, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}

	c, err := parse(embeddedSDKCatalog, embeddedDeviceCatalog)
	if err != nil {
		loadErr = err
		return nil, err
	}
	loaded.Store(c)
	return c, nil
}

func parse(sdkData, deviceData []byte) (*Catalog, error) {
	var sdkDoc sdkDocument
	if err := json.Unmarshal(sdkData, &sdkDoc); err != nil {
		return nil, fmt.Errorf("bundled SDK catalog is malformed: %w", err)
	}
	if len(sdkDoc.Entries) == 0 {
		return nil, fmt.Errorf("bundled SDK catalog is empty")
	}

	entries := make(map[entryKey]Entry, len(sdkDoc.Entries))
	for _, e := range sdkDoc.Entries {
		v, err := semver.Parse(e.Version)
		if err != nil {
			return nil, fmt.Errorf("bundled SDK catalog entry %q has invalid version %q: %w", e.Name, e.Version, err)
		}
		e.Semver = v

		key := entryKey{name: e.Name, arch: e.Architecture}
		if _, ok := entries[key]; ok {
			return nil, fmt.Errorf("bundled SDK catalog has duplicate entry %q/%s", e.Name, e.Architecture)
		}
		entries[key] = e
	}

	var deviceDoc deviceDocument
	if err := json.Unmarshal(deviceData, &deviceDoc); err != nil {
		return nil, fmt.Errorf("bundled device catalog is malformed: %w", err)
	}
	models := make(map[string]Architecture, len(deviceDoc.Models))
	for _, m := range deviceDoc.Models {
		models[m.Model] = m.Architecture
	}

	return &Catalog{entries: entries, models: models}, nil
}

// Lookup returns the catalog entry for an SDK name and architecture.
func (c *Catalog) Lookup(name string, arch Architecture) (Entry, bool) {
	e, ok := c.entries[entryKey{name: name, arch: arch}]
	return e, ok
}

// ResolveVersion returns the runtime version shipped by the named SDK
// on the given architecture.
func (c *Catalog) ResolveVersion(name string, arch Architecture) (semver.Version, bool) {
	e, ok := c.Lookup(name, arch)
	if !ok {
		return semver.Version{}, false
	}
	return e.Semver, true
}

// FindByVersion returns the entry whose runtime version matches on the
// given architecture. When several SDK builds ship the same runtime the
// highest SDK name wins.
func (c *Catalog) FindByVersion(version semver.Version, arch Architecture) (Entry, bool) {
	var best Entry
	var found bool
	for key, e := range c.entries {
		if key.arch != arch || !e.Semver.Equals(version) {
			continue
		}
		if !found || e.Name > best.Name {
			best = e
			found = true
		}
	}
	return best, found
}

// EntriesFor returns all entries for one architecture, in map order.
func (c *Catalog) EntriesFor(arch Architecture) []Entry {
	var out []Entry
	for key, e := range c.entries {
		if key.arch == arch {
			out = append(out, e)
		}
	}
	return out
}

// DeviceArchitecture maps a reported hardware model to its architecture.
func (c *Catalog) DeviceArchitecture(model string) (Architecture, bool) {
	arch, ok := c.models[model]
	return arch, ok
}
