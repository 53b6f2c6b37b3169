package internal

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["Token"] == nil {
		t.Errorf("error = %v, want one for Token", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestMetricsConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     MetricsConfig
		wantErr bool
	}{
		{"default", MetricsConfig{Enabled: true, Path: "/metrics"}, false},
		{"disabled without path", MetricsConfig{}, false},
		{"enabled without path", MetricsConfig{Enabled: true}, true},
		{"relative path", MetricsConfig{Enabled: true, Path: "metrics"}, true},
		{"clashes with api", MetricsConfig{Enabled: true, Path: "/api"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestFullConfig_StoreRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty store path should fail")
	}
}

func TestFullConfig_SQLiteInsideStore(t *testing.T) {
	tests := []struct {
		store, sqlite string
		wantErr       bool
	}{
		{"./proofs", "./fitch.db", false},
		{"./proofs", "./proofs/fitch.db", true},
		{"/data/proofs", "/data/proofs/.index/fitch.db", true},
		{"/data/proofs", "/data/proofs-index.db", false},
	}
	for _, tt := range tests {
		cfg := NewDefaultConfig()
		cfg.Store.Path = tt.store
		cfg.SQLite.Path = tt.sqlite
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("store %q sqlite %q: Validate() = %v, wantErr %v", tt.store, tt.sqlite, err, tt.wantErr)
		}
	}
}

func TestEventsConfig(t *testing.T) {
	tests := []struct {
		name     string
		throttle time.Duration
		wantErr  bool
	}{
		{"default", 2 * time.Second, false},
		{"zero", 0, true},
		{"too small", 10 * time.Millisecond, true},
		{"too large", time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EventsConfig{IndexThrottle: tt.throttle}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPConfig_NegativeShutdownTimeout(t *testing.T) {
	cfg := HTTPConfig{Port: 8080, ShutdownTimeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative shutdown timeout should fail")
	}
}
