package config

import (
	"os"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HGJ_LISTEN_ADDR", ":9090")
	t.Setenv("HGJ_WASTE_THRESHOLD", "250")
	t.Setenv("HGJ_MAX_WELDING_SEGMENTS", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.WasteThreshold != 250 {
		t.Errorf("WasteThreshold = %v, want 250", cfg.WasteThreshold)
	}
	if cfg.MaxWeldingSegments != 6 {
		t.Errorf("MaxWeldingSegments = %d, want 6", cfg.MaxWeldingSegments)
	}
}

func TestLoadReadsTOMLFileAndStillAppliesEnvOnTop(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"
	contents := "listen_addr = \":7000\"\nwaste_threshold = 300.0\n"
	if err := writeFile(path, contents); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	t.Setenv("HGJ_CONFIG_FILE", path)
	t.Setenv("HGJ_WASTE_THRESHOLD", "400")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q, want :7000 (from file)", cfg.ListenAddr)
	}
	if cfg.WasteThreshold != 400 {
		t.Errorf("WasteThreshold = %v, want 400 (env overrides file)", cfg.WasteThreshold)
	}
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	t.Setenv("HGJ_CONFIG_FILE", "/nonexistent/path/config.toml")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v, want nil for missing file", err)
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}
