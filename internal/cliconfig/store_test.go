package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() on missing file error = %v", err)
	}
	if len(cfg.Credentials) != 0 {
		t.Fatalf("expected empty credentials, got %d", len(cfg.Credentials))
	}

	if err := cfg.SetCredential("https://admin.example.com:8443/path", &Credential{Token: "tok", Email: "a@x.com"}); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cred, err := loaded.GetCredential("https://admin.example.com:8443")
	if err != nil {
		t.Fatalf("GetCredential() error = %v", err)
	}
	if cred.Token != "tok" || cred.Email != "a@x.com" {
		t.Errorf("unexpected credential: %+v", cred)
	}

	if err := loaded.RemoveCredential("https://admin.example.com:8443"); err != nil {
		t.Fatal(err)
	}
	if _, err := loaded.GetCredential("https://admin.example.com:8443"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
	if _, err := loaded.GetCredential("not a url"); err == nil {
		t.Error("expected error for url without host")
	}
}
