package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"niftymic/internal/config"
	"niftymic/internal/testsupport"
)

const stubDcm2niix = `out="$2"
in="$3"
name=$(basename "$(dirname "$out")")
for f in "$in"/*; do cat "$f" > "$out/$name.nii.gz"; done`

// stubDocker emulates the NiftyMIC image: $4 is host:mount and $6 the tool.
const stubDocker = `host="${4%%:*}"
case "$1" in
image) echo "sha256:feedface"; exit 0 ;;
esac
case "$6" in
niftymic_segment_fetal_brains) echo mask > "$host/masks/$(basename "$host").nii.gz" ;;
niftymic_reconstruct_volume) echo volume > "$host/output_nii/$(basename "$host").nii.gz" ;;
*) exit 4 ;;
esac`

const stubMedcon = `[ -f "$2" ] || exit 8
echo slice > m000001.dcm
echo slice > m000002.dcm`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	archive    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	defaults := []testsupport.ConfigOption{
		testsupport.WithScript("dcm2niix", stubDcm2niix),
		testsupport.WithScript("docker", stubDocker),
		testsupport.WithScript("medcon", stubMedcon),
	}
	cfg := testsupport.NewConfig(t, append(defaults, opts...)...)
	cfg.Logging.Level = "error"

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "niftymic.toml")
	writeTestConfig(t, configPath, cfg)

	archive := filepath.Join(base, "uploads", "scan01.zip")
	testsupport.WriteZip(t, archive, map[string]string{"IM0001": "dicom-bytes"})

	return &cliTestEnv{cfg: cfg, configPath: configPath, archive: archive}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
