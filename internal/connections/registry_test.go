package connections

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRegistry(t *testing.T) *Registry {
	t.Helper()
	return &Registry{filePath: filepath.Join(t.TempDir(), "connections.json")}
}

func TestLoadFrom(t *testing.T) {
	t.Run("absent file is empty registry", func(t *testing.T) {
		r, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d profiles", r.Len())
		}
	})

	t.Run("malformed file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connections.json")
		if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFrom(path); err == nil {
			t.Error("expected error for malformed registry")
		}
	})

	t.Run("repairs default on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connections.json")
		content := `[
			{"name": "Zeta", "host": "zeta.local", "user": "pi", "key_path": "/k"},
			{"name": "alpha", "host": "alpha.local", "user": "pi", "key_path": "/k"}
		]`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		r, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def, err := r.GetDefault()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def.Name != "alpha" {
			t.Errorf("expected lowest case-folded name 'alpha' promoted, got %q", def.Name)
		}
	})
}

func TestRepairDefault(t *testing.T) {
	t.Run("none set promotes lowest case-folded", func(t *testing.T) {
		r := tempRegistry(t)
		r.profiles = []Profile{
			{Name: "Beta", Host: "b", User: "pi"},
			{Name: "alpha", Host: "a", User: "pi"},
			{Name: "Gamma", Host: "g", User: "pi"},
		}
		r.repairDefault()

		count := 0
		for _, p := range r.profiles {
			if p.Default {
				count++
				if p.Name != "alpha" {
					t.Errorf("expected 'alpha' as default, got %q", p.Name)
				}
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one default, got %d", count)
		}
	})

	t.Run("multiple set collapses to one", func(t *testing.T) {
		r := tempRegistry(t)
		r.profiles = []Profile{
			{Name: "beta", Host: "b", User: "pi", Default: true},
			{Name: "alpha", Host: "a", User: "pi", Default: true},
		}
		r.repairDefault()

		count := 0
		for _, p := range r.profiles {
			if p.Default {
				count++
				if p.Name != "alpha" {
					t.Errorf("expected 'alpha' kept as default, got %q", p.Name)
				}
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one default, got %d", count)
		}
	})

	t.Run("empty registry untouched", func(t *testing.T) {
		r := tempRegistry(t)
		r.repairDefault()
		if r.Len() != 0 {
			t.Error("expected registry to stay empty")
		}
	})
}

func TestAdd(t *testing.T) {
	t.Run("first profile becomes default", func(t *testing.T) {
		r := tempRegistry(t)
		if err := r.Add(Profile{Name: "pi-lab", Host: "pi.local", User: "pi", KeyPath: "/k"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def, err := r.GetDefault()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def.Name != "pi-lab" {
			t.Errorf("expected 'pi-lab' default, got %q", def.Name)
		}
	})

	t.Run("duplicate name is case-insensitive", func(t *testing.T) {
		r := tempRegistry(t)
		if err := r.Add(Profile{Name: "pi-lab", Host: "h", User: "u"}); err != nil {
			t.Fatal(err)
		}
		err := r.Add(Profile{Name: "PI-LAB", Host: "h2", User: "u"})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		r := tempRegistry(t)
		if err := r.Add(Profile{Host: "h", User: "u"}); err == nil {
			t.Error("expected error for missing name")
		}
		if err := r.Add(Profile{Name: "n", User: "u"}); err == nil {
			t.Error("expected error for missing host")
		}
		if err := r.Add(Profile{Name: "n", Host: "h"}); err == nil {
			t.Error("expected error for missing user")
		}
	})

	t.Run("adding new default demotes old", func(t *testing.T) {
		r := tempRegistry(t)
		if err := r.Add(Profile{Name: "a", Host: "h", User: "u"}); err != nil {
			t.Fatal(err)
		}
		if err := r.Add(Profile{Name: "b", Host: "h", User: "u", Default: true}); err != nil {
			t.Fatal(err)
		}
		def, err := r.GetDefault()
		if err != nil {
			t.Fatal(err)
		}
		if def.Name != "b" {
			t.Errorf("expected 'b' default, got %q", def.Name)
		}
	})
}

func TestRemove(t *testing.T) {
	r := tempRegistry(t)
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Add(Profile{Name: name, Host: "h", User: "u"}); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("removing default promotes a new one", func(t *testing.T) {
		if err := r.Remove("alpha"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def, err := r.GetDefault()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def.Name != "beta" {
			t.Errorf("expected 'beta' promoted, got %q", def.Name)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if err := r.Remove("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSetDefault(t *testing.T) {
	r := tempRegistry(t)
	for _, name := range []string{"alpha", "beta"} {
		if err := r.Add(Profile{Name: name, Host: "h", User: "u"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.SetDefault("BETA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def, err := r.GetDefault()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != "beta" {
		t.Errorf("expected 'beta' default, got %q", def.Name)
	}

	if err := r.SetDefault("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Add(Profile{Name: "pi-lab", Host: "pi.local", Port: 2222, User: "pi", KeyPath: "/home/dev/.ssh/id_ed25519"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pretty formatted on disk.
	data, err := os.ReadFile(r.FilePath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("expected pretty-printed registry file")
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("registry file is not valid JSON: %v", err)
	}

	loaded, err := LoadFrom(r.FilePath())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := loaded.Get("pi-lab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Address() != "pi.local:2222" {
		t.Errorf("expected address pi.local:2222, got %q", p.Address())
	}
	if !p.Default {
		t.Error("expected profile to stay default across round trip")
	}
}

func TestProfileAddress(t *testing.T) {
	p := Profile{Host: "pi.local"}
	if p.Address() != "pi.local:22" {
		t.Errorf("expected default port 22, got %q", p.Address())
	}
}
