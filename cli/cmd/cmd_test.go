package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/datasophos/NexusLIMS-sub001/cli/config"
	"github.com/datasophos/NexusLIMS-sub001/log"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadManifest_Valid(t *testing.T) {
	path := writeFile(t, "manifest.json", `[
		{
			"file": "/data/a.xml",
			"session_identifier": "sess-001",
			"instrument_pid": "instr-642c",
			"start": "2026-02-07T09:00:00Z",
			"end": "2026-02-07T11:30:00Z",
			"user": "aperson"
		},
		{
			"file": "/data/b.xml",
			"session_identifier": "sess-002",
			"instrument_pid": "instr-642c",
			"start": "2026-02-08T09:00:00Z",
			"end": "2026-02-08T10:00:00Z"
		}
	]`)

	files, sessions, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest failed: %v", err)
	}
	if len(files) != 2 || len(sessions) != 2 {
		t.Fatalf("expected 2 entries, got %d files / %d sessions", len(files), len(sessions))
	}
	if files[0] != "/data/a.xml" || sessions[0].SessionID != "sess-001" {
		t.Errorf("first entry mismatch: %s / %s", files[0], sessions[0].SessionID)
	}
	if sessions[0].User == nil || *sessions[0].User != "aperson" {
		t.Error("expected user on first entry")
	}
	if sessions[1].User != nil {
		t.Error("expected nil user on second entry")
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	path := writeFile(t, "manifest.json", `[
		{"session_identifier": "sess-001", "start": "2026-02-07T09:00:00Z", "end": "2026-02-07T11:30:00Z"}
	]`)
	if _, _, err := loadManifest(path); err == nil {
		t.Fatal("expected error for entry without file")
	}
}

func TestLoadManifest_MissingSession(t *testing.T) {
	path := writeFile(t, "manifest.json", `[
		{"file": "/data/a.xml", "start": "2026-02-07T09:00:00Z", "end": "2026-02-07T11:30:00Z"}
	]`)
	if _, _, err := loadManifest(path); err == nil {
		t.Fatal("expected error for entry without session identifier")
	}
}

func TestLoadManifest_InvalidTime(t *testing.T) {
	path := writeFile(t, "manifest.json", `[
		{"file": "/data/a.xml", "session_identifier": "s", "start": "yesterday", "end": "2026-02-07T11:30:00Z"}
	]`)
	if _, _, err := loadManifest(path); err == nil {
		t.Fatal("expected error for non-RFC3339 start")
	}
}

func TestLoadManifest_InvalidJSON(t *testing.T) {
	path := writeFile(t, "manifest.json", `{not json`)
	if _, _, err := loadManifest(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadConfig_MissingDefaultTolerated(t *testing.T) {
	cfg, err := loadConfig(ConfigFlag.Value, false)
	if err != nil {
		t.Fatalf("missing default config must not error: %v", err)
	}
	if cfg.Strategy != "" {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	if _, err := loadConfig("/nonexistent/nexuslims.yaml", true); err == nil {
		t.Fatal("explicit missing config must error")
	}
}

func TestBuildRegistry_UnconfiguredDestinationsDisabled(t *testing.T) {
	registry := buildRegistry(context.Background(), &config.Config{}, log.NewLogger())

	if n := len(registry.EnabledDestinations()); n != 0 {
		t.Errorf("empty config must enable nothing, got %d", n)
	}
	// cdcs, labarchives, elabftw, spool always register; s3archive only
	// with a bucket.
	if n := len(registry.Destinations()); n != 4 {
		t.Errorf("expected 4 registered destinations, got %d", n)
	}
}

func TestBuildRegistry_SpoolEnabledByDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.Destinations.Spool.Dir = t.TempDir()
	registry := buildRegistry(context.Background(), cfg, log.NewLogger())

	enabled := registry.EnabledDestinations()
	if len(enabled) != 1 || enabled[0].Name() != "spool" {
		t.Fatalf("expected only spool enabled, got %v", enabled)
	}
}

func TestBuildRegistry_ELabFTWConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Destinations.ELabFTW.BaseURL = "https://elab.example.gov"
	cfg.Destinations.ELabFTW.APIKey = "apikey-123"
	cfg.Destinations.ELabFTW.CategoryID = 7
	registry := buildRegistry(context.Background(), cfg, log.NewLogger())

	enabled := registry.EnabledDestinations()
	if len(enabled) != 1 || enabled[0].Name() != "elabftw" {
		t.Fatalf("expected only elabftw enabled, got %v", enabled)
	}
	if enabled[0].Priority() != 80 {
		t.Errorf("expected default elabftw priority 80, got %d", enabled[0].Priority())
	}
}

func TestBuildRegistry_PriorityOverride(t *testing.T) {
	cfg := &config.Config{}
	cfg.Destinations.Spool.Dir = t.TempDir()
	p := 500
	cfg.Destinations.Spool.Priority = &p
	registry := buildRegistry(context.Background(), cfg, log.NewLogger())

	enabled := registry.EnabledDestinations()
	if len(enabled) != 1 || enabled[0].Priority() != 500 {
		t.Fatalf("expected spool priority override 500, got %v", enabled)
	}
}

func TestBuildAdapters_None(t *testing.T) {
	adapters, err := buildAdapters(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapters != nil {
		t.Errorf("expected no adapters, got %d", len(adapters))
	}
}

func TestBuildAdapters_Webhook(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "webhook"
	cfg.Adapter.URL = "https://hooks.example.com/lims"

	adapters, err := buildAdapters(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("expected 1 adapter, got %d", len(adapters))
	}
}

func TestBuildAdapters_WebhookMissingURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "webhook"
	if _, err := buildAdapters(cfg); err == nil {
		t.Fatal("expected error for webhook adapter without URL")
	}
}

func TestBuildAdapters_UnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "carrier-pigeon"
	if _, err := buildAdapters(cfg); err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
}
