package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PageSize != 1000 {
		t.Errorf("page size = %d, want 1000", cfg.PageSize)
	}
	if cfg.BaseURL == "" || cfg.DBPath == "" {
		t.Errorf("defaults missing: %+v", cfg)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "base_url: https://mail.internal.test/api\npoll_interval_sec: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://mail.internal.test/api" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.PollIntervalSec != 5 {
		t.Errorf("poll interval = %d", cfg.PollIntervalSec)
	}
	// Unset keys keep their defaults.
	if cfg.PageSize != 1000 {
		t.Errorf("page size = %d", cfg.PageSize)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	want, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	want.PageSize = 250

	if err := Write(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.PageSize != 250 {
		t.Errorf("page size = %d, want 250", got.PageSize)
	}
}
