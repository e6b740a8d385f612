package keyring

import (
	"errors"
	"testing"
)

func TestServiceName(t *testing.T) {
	got := serviceName("pi-lab")
	want := "Raspdbg - pi-lab"
	if got != want {
		t.Errorf("serviceName = %q, want %q", got, want)
	}
}

func TestDefaultStore(t *testing.T) {
	t.Run("os keyring by default", func(t *testing.T) {
		t.Setenv(TestKeyringEnvVar, "")
		store := DefaultStore()
		if _, ok := store.(*osKeyring); !ok {
			t.Errorf("expected osKeyring, got %T", store)
		}
	})

	t.Run("file store with test env var", func(t *testing.T) {
		t.Setenv(TestKeyringEnvVar, t.TempDir())
		store := DefaultStore()
		if _, ok := store.(*FileStore); !ok {
			t.Errorf("expected FileStore, got %T", store)
		}
	})
}

func TestMockStore(t *testing.T) {
	t.Run("set get delete", func(t *testing.T) {
		store := NewMockStore()
		if err := store.Set("pi-lab", "secret"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.Get("pi-lab")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "secret" {
			t.Errorf("expected 'secret', got %q", got)
		}
		if err := store.Delete("pi-lab"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := store.Get("pi-lab"); !errors.Is(err, ErrSecretNotFound) {
			t.Errorf("expected ErrSecretNotFound, got %v", err)
		}
	})

	t.Run("failing mode", func(t *testing.T) {
		store := NewMockStore()
		store.SetFailing(true)
		if err := store.Set("k", "v"); !errors.Is(err, ErrKeyringUnavailable) {
			t.Errorf("expected ErrKeyringUnavailable, got %v", err)
		}
	})
}

func TestWrapKeyringError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if wrapKeyringError(nil, "ctx") != nil {
			t.Error("expected nil")
		}
	})

	t.Run("access denied", func(t *testing.T) {
		err := wrapKeyringError(errors.New("operation not allowed"), "ctx")
		if !errors.Is(err, ErrKeyringAccessDenied) {
			t.Errorf("expected ErrKeyringAccessDenied, got %v", err)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		err := wrapKeyringError(errors.New("secret service is down"), "ctx")
		if !errors.Is(err, ErrKeyringUnavailable) {
			t.Errorf("expected ErrKeyringUnavailable, got %v", err)
		}
	})
}
