package sdk

import (
	"testing"

	"github.com/blang/semver"
)

func installedWith(versions ...string) []InstalledSDK {
	sdks := make([]InstalledSDK, 0, len(versions))
	for _, v := range versions {
		ver := semver.MustParse(v)
		sdks = append(sdks, InstalledSDK{Name: v, Version: &ver})
	}
	return sdks
}

func TestResolveTargetVersion(t *testing.T) {
	t.Run("picks highest matching patch", func(t *testing.T) {
		got, ok := ResolveTargetVersion("3.1", installedWith("3.1.8", "3.1.10", "3.0.5"))
		if !ok {
			t.Fatal("expected a match")
		}
		if got.String() != "3.1.10" {
			t.Errorf("expected 3.1.10, got %s", got)
		}
	})

	t.Run("numeric ordering beats lexical", func(t *testing.T) {
		// Lexically "3.1.9" > "3.1.10"; semver ordering must win.
		got, ok := ResolveTargetVersion("3.1", installedWith("3.1.9", "3.1.10"))
		if !ok {
			t.Fatal("expected a match")
		}
		if got.String() != "3.1.10" {
			t.Errorf("expected 3.1.10, got %s", got)
		}
	})

	t.Run("no candidate", func(t *testing.T) {
		if _, ok := ResolveTargetVersion("3.2", installedWith("3.1.8", "3.1.10", "3.0.5")); ok {
			t.Error("expected no match for 3.2")
		}
	})

	t.Run("exact major.minor prefix", func(t *testing.T) {
		// "3.1" must not match "3.10.x".
		got, ok := ResolveTargetVersion("3.1", installedWith("3.10.2", "3.1.4"))
		if !ok {
			t.Fatal("expected a match")
		}
		if got.String() != "3.1.4" {
			t.Errorf("expected 3.1.4, got %s", got)
		}

		if _, ok := ResolveTargetVersion("3.10", installedWith("3.1.4")); ok {
			t.Error("expected no match for 3.10 against 3.1.4")
		}
	})

	t.Run("unresolved entries are skipped", func(t *testing.T) {
		sdks := append(installedWith("3.1.8"), InstalledSDK{Name: "custom-build"})
		got, ok := ResolveTargetVersion("3.1", sdks)
		if !ok {
			t.Fatal("expected a match")
		}
		if got.String() != "3.1.8" {
			t.Errorf("expected 3.1.8, got %s", got)
		}
	})

	t.Run("empty inventory", func(t *testing.T) {
		if _, ok := ResolveTargetVersion("3.1", nil); ok {
			t.Error("expected no match on empty inventory")
		}
	})
}
