package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// DirSize returns the total size in bytes of the regular files below dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

// CopyTree copies the regular files and directories below src into dst,
// creating dst if needed. Symlinks and other special files are skipped.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			return CopyFile(p, target)
		default:
			return nil
		}
	})
}

// CopyFile copies a single file, creating parent directories of dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// rename is swapped in tests to simulate a failed move.
var rename = os.Rename

// ReplaceDir moves src to dst. An existing dst is moved aside first and
// deleted only once src is in place; if the move fails it is restored.
// Both paths must be on the same filesystem.
func ReplaceDir(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !PathExists(dst) {
		if err := rename(src, dst); err != nil {
			return fmt.Errorf("rename %s: %w", src, err)
		}
		return nil
	}
	aside, err := os.MkdirTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".old-")
	if err != nil {
		return fmt.Errorf("prepare replace of %s: %w", dst, err)
	}
	old := filepath.Join(aside, filepath.Base(dst))
	if err := rename(dst, old); err != nil {
		_ = os.RemoveAll(aside)
		return fmt.Errorf("move aside %s: %w", dst, err)
	}
	if err := rename(src, dst); err != nil {
		if rerr := rename(old, dst); rerr != nil {
			return errors.Join(fmt.Errorf("rename %s: %w", src, err), fmt.Errorf("restore %s: %w", dst, rerr))
		}
		_ = os.RemoveAll(aside)
		return fmt.Errorf("rename %s: %w", src, err)
	}
	// dst is already replaced; a leftover aside dir is only wasted space.
	_ = os.RemoveAll(aside)
	return nil
}
