package docker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"niftymic/internal/config"
	"niftymic/internal/services"
	"niftymic/internal/services/docker"
	"niftymic/internal/services/process"
)

type stubRunner struct {
	calls []process.Invocation
	err   error
}

func (s *stubRunner) Run(_ context.Context, inv process.Invocation) error {
	s.calls = append(s.calls, inv)
	return s.err
}

func TestArgsPlacesMountAndImage(t *testing.T) {
	b := docker.New("docker", "renbem/niftymic", "/app/data", nil)
	got := b.Args("niftymic_segment_fetal_brains", []string{"--filenames", "/app/data/nii/a.nii.gz"}, "/work/scan01-abc")
	want := []string{
		"run", "--rm",
		"-v", "/work/scan01-abc:/app/data",
		"renbem/niftymic",
		"niftymic_segment_fetal_brains",
		"--filenames", "/app/data/nii/a.nii.gz",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArgsWithEmptyToolArguments(t *testing.T) {
	b := docker.New("docker", "img", "/m", nil)
	got := b.Args("tool", nil, "/h")
	want := []string{"run", "--rm", "-v", "/h:/m", "img", "tool"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDelegatesToRunner(t *testing.T) {
	cfg := config.Default()
	cfg.Executables.Docker = "/usr/local/bin/podman"
	cfg.Docker.Image = "registry.local/niftymic:1"
	cfg.Docker.WorkingDirectory = "/data"
	runner := &stubRunner{}
	b := docker.FromConfig(&cfg, runner)

	if err := b.Run(context.Background(), "reconstruct", "niftymic_reconstruct_volume", []string{"--verbose", "1"}, "/work/job"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []process.Invocation{{
		Stage:  "reconstruct",
		Binary: "/usr/local/bin/podman",
		Args:   []string{"run", "--rm", "-v", "/work/job:/data", "registry.local/niftymic:1", "niftymic_reconstruct_volume", "--verbose", "1"},
	}}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("invocations mismatch (-want +got):\n%s", diff)
	}
	if b.MountPath() != "/data" {
		t.Fatalf("MountPath = %q", b.MountPath())
	}
}

func TestRunPropagatesRunnerError(t *testing.T) {
	failure := services.Wrap(services.ErrCommandExecution, "segment", "docker", "", errors.New("exit 125"))
	b := docker.New("docker", "img", "/m", &stubRunner{err: failure})
	if err := b.Run(context.Background(), "segment", "tool", nil, "/h"); !errors.Is(err, services.ErrCommandExecution) {
		t.Fatalf("expected runner error unchanged, got %v", err)
	}
	if err := docker.New("docker", "img", "/m", nil).Run(context.Background(), "segment", "tool", nil, "/h"); !errors.Is(err, services.ErrCommandSpawn) {
		t.Fatalf("expected ErrCommandSpawn without runner, got %v", err)
	}
}
