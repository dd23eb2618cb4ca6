package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"niftymic/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDirectory = filepath.Join(base, "jobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStubbedBinaries writes exit-0 stub executables for the provided names
// and points the matching executables at them. If names is empty, dcm2niix,
// medcon and docker are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"dcm2niix", "medcon", "docker"}
		}
		for _, name := range names {
			b.setExecutable(name, WriteScript(b.t, b.binDir(), name, "exit 0"))
		}
	}
}

// WithScript installs a stub executable running body and points the matching
// executable (dcm2niix, medcon or docker) at it.
func WithScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		b.setExecutable(name, WriteScript(b.t, b.binDir(), name, body))
	}
}

func (b *configBuilder) binDir() string {
	dir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func (b *configBuilder) setExecutable(name, path string) {
	switch name {
	case "dcm2niix":
		b.cfg.Executables.Dcm2niix = path
	case "medcon":
		b.cfg.Executables.Medcon = path
	case "docker":
		b.cfg.Executables.Docker = path
	}
}

// WriteScript writes an executable /bin/sh script into dir and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BaseDirectory)
}
