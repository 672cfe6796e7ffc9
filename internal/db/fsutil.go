package db

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}

// writeFileAtomic replaces path via a temp file in the same directory so a
// failed write never leaves a truncated ledger behind.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	if err := ensureWritable(path); err != nil {
		return err
	}
	if err := ensureParent(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		return err
	}
	return os.Rename(name, path)
}

// ensureWritable refuses to touch a ledger file whose owner write bit is
// cleared. Permission checks alone are bypassed by root and by rename.
func ensureWritable(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o200 == 0 {
		return ErrReadOnly
	}
	return nil
}

// DiskUsage sums the size of a file or every regular file under a directory.
func DiskUsage(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
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
	return total, err
}
