package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Root     string        `yaml:"root"`
	Cap      int           `yaml:"cap"`
	Interval time.Duration `yaml:"interval"`
}

func (s *sample) Validate() error {
	if s.Cap < 0 {
		return errors.New("cap must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("QUIKPIX_TEST_ROOT", "/srv/photos")
	p := writeFile(t, "root: ${QUIKPIX_TEST_ROOT}\ninterval: 5s\n")

	cfg := sample{Cap: 20}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/srv/photos" {
		t.Errorf("root = %q", cfg.Root)
	}
	if cfg.Cap != 20 {
		t.Errorf("cap = %d, want default 20 kept", cfg.Cap)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("interval = %v", cfg.Interval)
	}
}

func TestLoad_Validation(t *testing.T) {
	p := writeFile(t, "cap: -1\n")
	var cfg sample
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "root: [unclosed\n")
	var cfg sample
	if err := Load(p, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Root: "./photos"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.Root != "./photos" {
		t.Errorf("root = %q", cfg.Root)
	}

	bad := sample{Cap: -3}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}

	p := writeFile(t, "root: /data\n")
	if err := LoadOptional(p, &cfg); err != nil || cfg.Root != "/data" {
		t.Errorf("existing file: root = %q, err = %v", cfg.Root, err)
	}
}
