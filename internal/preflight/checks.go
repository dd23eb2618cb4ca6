package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"niftymic/internal/config"
	"niftymic/internal/deps"
)

const imageCheckTimeout = 15 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDockerImage asks the container engine whether the configured image is
// available locally. It runs "<engine> image inspect <image>" once.
func CheckDockerImage(ctx context.Context, cfg *config.Config) Result {
	const name = "NiftyMIC image"
	engine := strings.TrimSpace(cfg.Executables.Docker)
	image := strings.TrimSpace(cfg.Docker.Image)
	if engine == "" || image == "" {
		return Result{Name: name, Detail: "engine or image not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, imageCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(checkCtx, engine, "image", "inspect", "--format", "{{.Id}}", image) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", image, firstLine(detail))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", image, firstLine(strings.TrimSpace(string(output))))}
}

// CheckSystemDeps evaluates the host executables for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "dcm2niix",
			Command:     cfg.Executables.Dcm2niix,
			Description: "Required for DICOM to NIfTI conversion",
		},
		{
			Name:        "medcon",
			Command:     cfg.Executables.Medcon,
			Description: "Required for NIfTI to DICOM conversion",
		},
		{
			Name:        "Container engine",
			Command:     cfg.Executables.Docker,
			Description: "Required for mask generation and reconstruction",
		},
	}
	return deps.CheckBinaries(requirements)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
