package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"niftymic/internal/config"
	"niftymic/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists && resolved != "/etc/niftymic/niftymic.toml" {
		t.Fatalf("expected config file to be absent in temp HOME, resolved %q", resolved)
	}
	if exists {
		t.Skip("system configuration present; defaults not observable")
	}

	wantBase := filepath.Join(tempHome, ".local", "share", "niftymic", "jobs")
	if cfg.Paths.BaseDirectory != wantBase {
		t.Fatalf("unexpected base directory: got %q want %q", cfg.Paths.BaseDirectory, wantBase)
	}
	if cfg.Docker.WorkingDirectory != "/app/data" {
		t.Fatalf("unexpected mount path: %q", cfg.Docker.WorkingDirectory)
	}
	if cfg.Executables.Dcm2niix != "dcm2niix" || cfg.Executables.Medcon != "medcon" || cfg.Executables.Docker != "docker" {
		t.Fatalf("unexpected executables: %+v", cfg.Executables)
	}
	if cfg.Reconstruction.TwoStepCycles != 3 || cfg.Reconstruction.Alpha != 0.01 {
		t.Fatalf("unexpected reconstruction defaults: %+v", cfg.Reconstruction)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.BaseDirectory, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "niftymic.toml")

	type payload struct {
		Paths struct {
			BaseDirectory string `toml:"base_directory"`
		} `toml:"paths"`
		Docker struct {
			Image            string `toml:"image"`
			WorkingDirectory string `toml:"working_directory"`
		} `toml:"docker"`
		Reconstruction struct {
			Alpha         float64 `toml:"alpha"`
			TwoStepCycles int     `toml:"two_step_cycles"`
		} `toml:"reconstruction"`
	}
	custom := payload{}
	custom.Paths.BaseDirectory = filepath.Join(tempDir, "work")
	custom.Docker.Image = "registry.local/niftymic:0.9"
	custom.Docker.WorkingDirectory = "/data/"
	custom.Reconstruction.Alpha = 0.02
	custom.Reconstruction.TwoStepCycles = 5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.BaseDirectory != custom.Paths.BaseDirectory {
		t.Fatalf("base directory = %q", cfg.Paths.BaseDirectory)
	}
	if cfg.Docker.Image != "registry.local/niftymic:0.9" {
		t.Fatalf("image = %q", cfg.Docker.Image)
	}
	if cfg.Docker.WorkingDirectory != "/data" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Docker.WorkingDirectory)
	}
	if cfg.Reconstruction.Alpha != 0.02 || cfg.Reconstruction.TwoStepCycles != 5 {
		t.Fatalf("unexpected reconstruction: %+v", cfg.Reconstruction)
	}
	if cfg.Reconstruction.Threshold != 0.85 {
		t.Fatalf("expected unset fields to keep defaults, got %v", cfg.Reconstruction.Threshold)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "niftymic.toml")
	if err := os.WriteFile(configPath, []byte("[docker]\nimage = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NIFTYMIC_DOCKER_IMAGE", "from-env")
	t.Setenv("NIFTYMIC_EXECUTABLES_DOCKER", "/usr/bin/podman")
	t.Setenv("NIFTYMIC_LEDGER_ENABLED", "false")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Docker.Image != "from-env" {
		t.Errorf("expected image from env, got %q", cfg.Docker.Image)
	}
	if cfg.Executables.Docker != "/usr/bin/podman" {
		t.Errorf("expected docker executable from env, got %q", cfg.Executables.Docker)
	}
	if cfg.Ledger.Enabled {
		t.Error("expected ledger disabled from env")
	}
}

func TestInvalidEnvBooleanIsConfigurationError(t *testing.T) {
	t.Setenv("NIFTYMIC_LEDGER_ENABLED", "sometimes")
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMalformedFileIsConfigurationError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[docker\nimage ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Docker != def.Docker || cfg.Reconstruction != def.Reconstruction || cfg.Executables != def.Executables {
		t.Fatalf("sample drifted from defaults: %+v", cfg)
	}
	if !strings.Contains(cfg.Paths.BaseDirectory, "niftymic") {
		t.Fatalf("expected base directory to mention niftymic, got %q", cfg.Paths.BaseDirectory)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"empty image":         func(c *config.Config) { c.Docker.Image = "" },
		"relative mount":      func(c *config.Config) { c.Docker.WorkingDirectory = "data" },
		"mount with colon":    func(c *config.Config) { c.Docker.WorkingDirectory = "/a:b" },
		"missing dcm2niix":    func(c *config.Config) { c.Executables.Dcm2niix = "" },
		"zero alpha":          func(c *config.Config) { c.Reconstruction.Alpha = 0 },
		"threshold above 1":   func(c *config.Config) { c.Reconstruction.Threshold = 1.5 },
		"negative cycles":     func(c *config.Config) { c.Reconstruction.TwoStepCycles = -1 },
		"unknown log level":   func(c *config.Config) { c.Logging.Level = "verbose" },
		"missing base dir":    func(c *config.Config) { c.Paths.BaseDirectory = " " },
		"zero iso resolution": func(c *config.Config) { c.Reconstruction.IsotropicResolution = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
