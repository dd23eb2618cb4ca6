package workdir

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"niftymic/internal/services"
)

// Translation maps paths below a host root onto a container root and back.
// The container side always uses forward slashes.
type Translation struct {
	HostRoot      string
	ContainerRoot string
}

// NewTranslation cleans both roots.
func NewTranslation(hostRoot, containerRoot string) Translation {
	return Translation{
		HostRoot:      filepath.Clean(hostRoot),
		ContainerRoot: path.Clean(containerRoot),
	}
}

// Translate rewrites a host path strictly below HostRoot into the container
// namespace. The root itself and unrelated paths are rejected.
func (t Translation) Translate(hostPath string) (string, error) {
	if !filepath.IsAbs(hostPath) {
		return "", t.fail("translate", hostPath, "path is not absolute")
	}
	rel, err := filepath.Rel(t.HostRoot, filepath.Clean(hostPath))
	if err != nil || !isDescendant(rel) {
		return "", t.fail("translate", hostPath, fmt.Sprintf("not below %s", t.HostRoot))
	}
	return path.Join(t.ContainerRoot, filepath.ToSlash(rel)), nil
}

// Reverse rewrites a container path strictly below ContainerRoot back onto
// the host.
func (t Translation) Reverse(containerPath string) (string, error) {
	if !path.IsAbs(containerPath) {
		return "", t.fail("reverse", containerPath, "path is not absolute")
	}
	cleaned := path.Clean(containerPath)
	prefix := t.ContainerRoot
	if prefix != "/" {
		prefix += "/"
	}
	rel, ok := strings.CutPrefix(cleaned, prefix)
	if !ok || rel == "" {
		return "", t.fail("reverse", containerPath, fmt.Sprintf("not below %s", t.ContainerRoot))
	}
	return filepath.Join(t.HostRoot, filepath.FromSlash(rel)), nil
}

func (t Translation) fail(operation, p, reason string) error {
	return services.Wrap(services.ErrPathTranslation, stageName, operation, fmt.Sprintf("%s: %s", p, reason), nil)
}

func isDescendant(rel string) bool {
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
