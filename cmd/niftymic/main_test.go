package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"niftymic/internal/pipeline"
	"niftymic/internal/services"
	"niftymic/internal/testsupport"
)

func workdirFromOutput(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if dir, ok := strings.CutPrefix(line, "Working directory: "); ok {
			return strings.TrimSpace(dir)
		}
	}
	t.Fatalf("no working directory in output:\n%s", out)
	return ""
}

func TestCLIPipelineRunsEveryStage(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"pipeline", env.archive, "--two-step-cycles", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("pipeline: %v\n%s", err, out)
	}
	dir := workdirFromOutput(t, out)
	if !strings.HasPrefix(dir, env.cfg.Paths.BaseDirectory) {
		t.Fatalf("working directory %q outside base %q", dir, env.cfg.Paths.BaseDirectory)
	}
	result := filepath.Join(dir, filepath.Base(dir)+".zip")
	if !strings.Contains(out, "Result archive: "+result) {
		t.Fatalf("expected result archive in output:\n%s", out)
	}
	if diff := cmp.Diff([]string{"m000001.dcm", "m000002.dcm"}, testsupport.ZipEntries(t, result)); diff != "" {
		t.Fatalf("archive entries mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, []string{"history", dir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	var steps []string
	for _, entry := range entries {
		if entry.Status != pipeline.StatusSucceeded {
			t.Fatalf("unexpected status for %s: %s", entry.Step, entry.Status)
		}
		steps = append(steps, entry.Step)
	}
	want := []string{pipeline.StepConvertDicom, pipeline.StepGenerateMasks, pipeline.StepReconstruct, pipeline.StepConvertNifti}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Fatalf("history steps mismatch (-want +got):\n%s", diff)
	}
}

func TestCLIStageByStageWithPrerequisites(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"convert-dicom", env.archive}, env.configPath)
	if err != nil {
		t.Fatalf("convert-dicom: %v", err)
	}
	dir := workdirFromOutput(t, out)
	if !strings.Contains(out, "Stage: Dicom Converted") {
		t.Fatalf("expected stage line, got:\n%s", out)
	}

	_, _, err = runCLI(t, []string{"reconstruct", dir}, env.configPath)
	if !errors.Is(err, services.ErrStagePrerequisite) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --force hint, got %v", err)
	}

	name := filepath.Base(dir)
	out, _, err = runCLI(t, []string{"generate-masks", name}, env.configPath)
	if err != nil {
		t.Fatalf("generate-masks by name: %v", err)
	}
	if !strings.Contains(out, "Stage: Masks Generated") {
		t.Fatalf("expected masks stage, got:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"reconstruct", dir, "--alpha", "0.05"}, env.configPath); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	out, _, err = runCLI(t, []string{"convert-nifti", dir}, env.configPath)
	if err != nil {
		t.Fatalf("convert-nifti: %v", err)
	}
	if !strings.Contains(out, "Result archive: ") {
		t.Fatalf("expected archive path, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"status", dir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if view.Stage != pipeline.DicomRegenerated.String() || view.NextStep != "" {
		t.Fatalf("unexpected stage %q next %q", view.Stage, view.NextStep)
	}
	if view.DicomOut != 2 || view.Archive == "" || !view.Volume {
		t.Fatalf("unexpected outputs: %+v", view)
	}
	if view.LastStep != pipeline.StepConvertNifti || view.LastStatus != pipeline.StatusSucceeded {
		t.Fatalf("unexpected ledger summary: %+v", view)
	}
}

func TestCLIForceSkipsPrerequisiteCheck(t *testing.T) {
	env := setupCLITestEnv(t)
	wd := testsupport.NewWorkingDirectory(t, env.cfg.Paths.BaseDirectory, "scan02-abc")

	out, _, err := runCLI(t, []string{"reconstruct", wd.Root, "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("reconstruct --force: %v", err)
	}
	if !strings.Contains(out, "Stage: Reconstructed") {
		t.Fatalf("expected reconstructed stage, got:\n%s", out)
	}
}

func TestCLIReconstructRejectsInvalidOptions(t *testing.T) {
	env := setupCLITestEnv(t)
	wd := testsupport.NewWorkingDirectory(t, env.cfg.Paths.BaseDirectory, "scan03-abc")

	_, _, err := runCLI(t, []string{"reconstruct", wd.Root, "--force", "--threshold", "2"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, statErr := os.Stat(wd.NiftiOutputPath()); statErr == nil {
		t.Fatal("reconstruction should not have run")
	}
}

func TestCLIStageFailureIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithScript("dcm2niix", "echo broken >&2; exit 3"))

	out, _, err := runCLI(t, []string{"convert-dicom", env.archive}, env.configPath)
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected conversion error, got %v", err)
	}
	dir := workdirFromOutput(t, out)
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Fatalf("working directory should remain after failure: %v", statErr)
	}

	out, _, err = runCLI(t, []string{"history", dir}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, pipeline.StepConvertDicom) || !strings.Contains(out, pipeline.StatusFailed) {
		t.Fatalf("expected failed run in history:\n%s", out)
	}
}

func TestCLIListShowsWorkingDirectories(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No working directories") {
		t.Fatalf("expected empty message, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"convert-dicom", env.archive}, env.configPath)
	if err != nil {
		t.Fatalf("convert-dicom: %v", err)
	}
	name := filepath.Base(workdirFromOutput(t, out))

	out, _, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{name, "Dicom Converted", "convert_dicom succeeded"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != name || entries[0].Stage != pipeline.DicomConverted.String() {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestCLIHistoryRequiresLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Ledger.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled ledger error, got %v", err)
	}
}

func TestCLICheck(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"Dependencies", "dcm2niix", "sha256:feedface", "All checks passed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	env.cfg.Executables.Medcon = filepath.Join(testsupport.BaseDir(env.cfg), "missing-medcon")
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check failure, output:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected error line, got:\n%s", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "sample.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target in output, got %q", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "# source: "+env.configPath) || !strings.Contains(out, env.cfg.Paths.BaseDirectory) {
		t.Fatalf("unexpected config show output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
}

func TestCLILogLevelFlagIsValidated(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--log-level", "chatty", "list"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
