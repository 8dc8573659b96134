// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectFiles returns the files under rootPath whose names end with the
// given suffix, skipping any name that also matches one of the exclude
// suffixes. A rootPath that is itself a file is returned as-is when it
// matches. Results are sorted so discovery order is stable across runs.
func CollectFiles(rootPath, suffix string, exclude ...string) ([]string, error) {
	if suffix == "" {
		panic("suffix must not be empty")
	}

	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if matches(info.Name(), suffix, exclude) {
			return []string{rootPath}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && matches(d.Name(), suffix, exclude) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func matches(name, suffix string, exclude []string) bool {
	if !strings.HasSuffix(name, suffix) {
		return false
	}
	for _, ex := range exclude {
		if strings.HasSuffix(name, ex) {
			return false
		}
	}
	return true
}
