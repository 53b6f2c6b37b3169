package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("FITCH_TEST_NAME", "proofs")
	path := write(t, "name: ${FITCH_TEST_NAME}\n")

	cfg := sample{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "proofs" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := write(t, "port: 0\n")
	cfg := sample{Port: 8080}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	cfg := sample{Port: 1}
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Port: 1}
	if err := LoadOptional(missing, &cfg); err != nil {
		t.Errorf("missing file with valid defaults: %v", err)
	}
	cfg = sample{}
	if err := LoadOptional(missing, &cfg); err == nil {
		t.Error("invalid defaults should still fail validation")
	}

	path := write(t, "port: [\n")
	if err := LoadOptional(path, &cfg); err == nil || errors.Is(err, os.ErrNotExist) {
		t.Errorf("malformed file err = %v", err)
	}
}

func TestLookupEnv(t *testing.T) {
	t.Setenv("FITCH_SET", "value")
	t.Setenv("FITCH_EMPTY", "")

	tests := []struct{ key, want string }{
		{"FITCH_SET", "value"},
		{"FITCH_SET:-other", "value"},
		{"FITCH_EMPTY", ""},
		{"FITCH_EMPTY:-fallback", "fallback"},
		{"FITCH_UNSET_VARIABLE", ""},
		{"FITCH_UNSET_VARIABLE:-fallback", "fallback"},
		{"FITCH_UNSET_VARIABLE:-", ""},
	}
	for _, tt := range tests {
		if got := lookupEnv(tt.key); got != tt.want {
			t.Errorf("lookupEnv(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoad_DefaultsInReferences(t *testing.T) {
	path := write(t, "name: ${FITCH_UNSET_VARIABLE:-fallback}\nport: ${FITCH_UNSET_PORT:-9090}\n")
	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "fallback" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
}
