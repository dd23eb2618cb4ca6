package workdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"niftymic/internal/services"
)

// Subdirectory names. They are part of the on-disk contract.
const (
	ArchiveDir     = "archive"
	NiftiDir       = "nii"
	MasksDir       = "masks"
	OutputNiftiDir = "output_nii"
	OutputDicomDir = "output_dicom"
)

const stageName = "workdir"

// Layout lists the subdirectories created for every job, in creation order.
var Layout = []string{ArchiveDir, NiftiDir, MasksDir, OutputNiftiDir, OutputDicomDir}

// ExtractFunc unpacks an archive into a destination directory and returns the
// extracted file paths. archive.Extract satisfies it.
type ExtractFunc func(ctx context.Context, archivePath, dest string) ([]string, error)

// WorkingDirectory holds the absolute paths of one job's directory tree.
type WorkingDirectory struct {
	Root        string
	Name        string
	Archive     string
	Nifti       string
	Masks       string
	OutputNifti string
	OutputDicom string
}

func newWorkingDirectory(root string) *WorkingDirectory {
	return &WorkingDirectory{
		Root:        root,
		Name:        filepath.Base(root),
		Archive:     filepath.Join(root, ArchiveDir),
		Nifti:       filepath.Join(root, NiftiDir),
		Masks:       filepath.Join(root, MasksDir),
		OutputNifti: filepath.Join(root, OutputNiftiDir),
		OutputDicom: filepath.Join(root, OutputDicomDir),
	}
}

// NewName builds a unique directory name from the archive file name.
func NewName(archivePath string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate directory id: %w", err)
	}
	base := filepath.Base(archivePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "job"
	}
	return stem + "-" + id.String(), nil
}

// CreateFromArchive creates a fresh working directory below baseDir and
// extracts archivePath into its archive subdirectory. The root must not exist
// yet. A failed extraction leaves the created tree in place.
func CreateFromArchive(ctx context.Context, archivePath, baseDir string, extract ExtractFunc) (*WorkingDirectory, error) {
	if extract == nil {
		return nil, fmt.Errorf("create working directory: extractor is required")
	}
	name, err := NewName(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryCreation, stageName, "name", archivePath, err)
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryCreation, stageName, "resolve base", baseDir, err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, services.Wrap(services.ErrDirectoryCreation, stageName, "create base", base, err)
	}

	wd := newWorkingDirectory(filepath.Join(base, name))
	if err := os.Mkdir(wd.Root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrDirectoryCreation, stageName, "create root", wd.Root, err)
	}
	for _, dir := range wd.Subdirectories() {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrDirectoryCreation, stageName, "create subdirectory", dir, err)
		}
	}

	if _, err := extract(ctx, archivePath, wd.Archive); err != nil {
		if !errors.Is(err, services.ErrArchiveInvalid) {
			err = services.Wrap(services.ErrArchiveInvalid, stageName, "extract", archivePath, err)
		}
		return nil, err
	}
	return wd, nil
}

// Open attaches to an existing directory without checking its contents.
func Open(path string) (*WorkingDirectory, error) {
	root, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve working directory %q: %w", path, err)
	}
	return newWorkingDirectory(root), nil
}

// Subdirectories returns the absolute paths of the five fixed subdirectories.
func (w *WorkingDirectory) Subdirectories() []string {
	return []string{w.Archive, w.Nifti, w.Masks, w.OutputNifti, w.OutputDicom}
}

// NiftiOutputPath is the reconstructed volume, output_nii/<name>.nii.gz.
func (w *WorkingDirectory) NiftiOutputPath() string {
	return filepath.Join(w.OutputNifti, w.Name+".nii.gz")
}

// ResultArchivePath is the packaged DICOM bundle, <root>/<name>.zip.
func (w *WorkingDirectory) ResultArchivePath() string {
	return filepath.Join(w.Root, w.Name+".zip")
}

// Translation returns the mapping from this directory's root to mount.
func (w *WorkingDirectory) Translation(mount string) Translation {
	return NewTranslation(w.Root, mount)
}

// Translate re-roots a descendant of the working directory under targetRoot.
func (w *WorkingDirectory) Translate(path, targetRoot string) (string, error) {
	return w.Translation(targetRoot).Translate(path)
}

// TranslateAll translates every path, failing on the first one that is not
// below the root. An empty input yields an empty, non-nil slice.
func (w *WorkingDirectory) TranslateAll(paths []string, targetRoot string) ([]string, error) {
	t := w.Translation(targetRoot)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		translated, err := t.Translate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, translated)
	}
	return out, nil
}
