package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// PathSizes reports the on-disk size of each named data path for diagnostics.
// Directories are summed recursively; missing or empty paths report -1.
func PathSizes(paths map[string]string) map[string]int64 {
	out := make(map[string]int64, len(paths))
	for name, p := range paths {
		out[name] = pathSize(p)
	}
	return out
}

func pathSize(p string) int64 {
	if p == "" {
		return -1
	}
	info, err := os.Stat(p)
	if err != nil {
		return -1
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return -1
	}
	return total
}
