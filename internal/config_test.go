package internal

import (
	"strings"
	"testing"
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
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
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

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := cfg.Viewer.Tuning(); got.SwipeThreshold != 150 || got.DoubleTapScale != 2.5 {
		t.Errorf("viewer tuning = %+v", got)
	}
	if got := cfg.Library.GalleryOptions(); got.RefBase != "/api/images" || got.ThumbnailCap != 20 {
		t.Errorf("gallery options = %+v", got)
	}
}

func TestLibraryConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LibraryConfig)
	}{
		{"empty root", func(c *LibraryConfig) { c.Root = "" }},
		{"negative cap", func(c *LibraryConfig) { c.ThumbnailCap = -1 }},
		{"negative limit", func(c *LibraryConfig) { c.ResultLimit = -5 }},
		{"empty ref base", func(c *LibraryConfig) { c.RefBase = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Library
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestViewerConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ViewerConfig)
	}{
		{"min above one", func(c *ViewerConfig) { c.MinScale = 1.5 }},
		{"max below one", func(c *ViewerConfig) { c.MaxScale = 0.5 }},
		{"double tap above max", func(c *ViewerConfig) { c.DoubleTapScale = 9 }},
		{"zero threshold", func(c *ViewerConfig) { c.SwipeThreshold = 0 }},
		{"negative timeout", func(c *ViewerConfig) { c.ControlsTimeout = -1 }},
		{"no sessions", func(c *ViewerConfig) { c.MaxSessions = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Viewer
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFullConfig_ViewerValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Viewer.SwipeThreshold = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch viewer error")
	}
}
