package workdir

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirInfo describes one working directory below the base directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns the directories below baseDir that have the working-directory
// layout, newest first. A missing base directory yields no entries.
func List(baseDir string) ([]DirInfo, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(baseDir, entry.Name())
		if !hasLayout(dirPath) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		if dirs[i].ModTime.Equal(dirs[j].ModTime) {
			return dirs[i].Name > dirs[j].Name
		}
		return dirs[i].ModTime.After(dirs[j].ModTime)
	})
	return dirs, nil
}

func hasLayout(root string) bool {
	for _, name := range Layout {
		info, err := os.Stat(filepath.Join(root, name))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

func dirSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
