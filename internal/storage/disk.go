// Package storage reports disk usage of collection files.
package storage

import (
	"errors"
	"os"
	"strings"
)

// Usage is the on-disk footprint of a set of collection files.
type Usage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DirUsage sums the sizes of regular files directly in dir whose names end in suffix.
// An empty suffix matches every file. A missing dir has zero usage.
func DirUsage(dir, suffix string) (Usage, error) {
	var u Usage
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return u, nil
		}
		return u, err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return u, err
		}
		u.Files++
		u.Bytes += info.Size()
	}
	return u, nil
}
