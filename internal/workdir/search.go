package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NiftiExtensions matches converted volumes; dcm2niix may write either form.
var NiftiExtensions = []string{".nii", ".nii.gz"}

// MaskExtension matches generated brain masks.
const MaskExtension = ".nii.gz"

// SearchByExtension walks dir and returns the absolute paths of regular files
// whose names end with one of the suffixes, sorted lexicographically. The
// ordering is what pairs volumes with their masks by index. An empty suffix
// matches every file.
func SearchByExtension(dir string, suffixes ...string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	matches := []string{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if hasSuffix(d.Name(), suffixes) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func hasSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Clear removes every non-directory entry below dir and keeps the directory
// structure. Clearing an empty, already-cleared, or missing directory succeeds.
func Clear(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		return nil
	})
}
