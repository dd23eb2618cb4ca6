package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"niftymic/internal/services"
)

const stageName = "archive"

// Filter reports whether a file should be added to an archive.
type Filter func(path string) bool

// DicomFilter selects regenerated DICOM slices.
func DicomFilter(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".dcm")
}

// Extract unpacks archivePath into dest and returns the absolute paths of the
// extracted files in lexical order. Paths that are not zip files, cannot be
// opened, or contain no entries fail with services.ErrArchiveInvalid.
func Extract(ctx context.Context, archivePath, dest string) ([]string, error) {
	if !strings.EqualFold(filepath.Ext(archivePath), ".zip") {
		return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", fmt.Sprintf("%s is not a zip archive", archivePath), nil)
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", fmt.Sprintf("%s is not accessible", archivePath), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", fmt.Sprintf("%s is a directory", archivePath), nil)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", archivePath, err)
	}
	defer reader.Close()

	if len(reader.File) == 0 {
		return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", fmt.Sprintf("%s is empty", archivePath), nil)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	files := make([]string, 0, len(reader.File))
	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, err := entryTarget(root, entry.Name)
		if err != nil {
			return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", archivePath, err)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(entry, target); err != nil {
			return nil, services.Wrap(services.ErrArchiveInvalid, stageName, "extract", entry.Name, err)
		}
		files = append(files, target)
	}
	sort.Strings(files)
	return files, nil
}

// entryTarget resolves an entry name below root, rejecting names that escape it.
func entryTarget(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return filepath.Join(root, cleaned), nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}

// Create writes every regular file below srcDir accepted by filter into a new
// zip at outPath. Entries are stored flat under their base names. A nil filter
// accepts everything.
func Create(ctx context.Context, srcDir, outPath string, filter Filter) error {
	var matches []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if filter == nil || filter(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", srcDir, err)
	}
	sort.Strings(matches)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	writer := zip.NewWriter(out)
	if err := writeEntries(ctx, writer, matches); err != nil {
		_ = writer.Close()
		_ = out.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := writer.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("finalize %s: %w", outPath, err)
	}
	return out.Close()
}

func writeEntries(ctx context.Context, writer *zip.Writer, paths []string) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEntry(writer, path); err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
	}
	return nil
}

func writeEntry(writer *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, in)
	return err
}
