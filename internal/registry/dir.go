package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mlserve/internal/common/fsutil"
)

// DirRegistry is a registry laid out on a local or mounted filesystem:
//
//	<root>/<qualified name>/<version>/<artifact files...>
//
// Every subdirectory of a model directory is a version. RunID is the
// version directory path. It serves air-gapped deployments and local runs.
type DirRegistry struct {
	root string
}

// NewDirRegistry returns a registry rooted at dir. A leading '~' is expanded.
func NewDirRegistry(dir string) (*DirRegistry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	return &DirRegistry{root: abs}, nil
}

// ListVersions scans <root>/<name> for version directories.
func (r *DirRegistry) ListVersions(ctx context.Context, name string) ([]ModelVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	modelDir := filepath.Join(r.root, name)
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var versions []ModelVersion
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		versions = append(versions, ModelVersion{
			Name:    name,
			Version: e.Name(),
			RunID:   filepath.Join(modelDir, e.Name()),
			Source:  "file://" + filepath.Join(modelDir, e.Name()),
			Status:  "READY",
		})
	}
	return versions, nil
}

// FetchArtifact copies the version directory into dstDir.
func (r *DirRegistry) FetchArtifact(ctx context.Context, v ModelVersion, dstDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := v.RunID
	if src == "" {
		src = filepath.Join(r.root, v.Name, v.Version)
	}
	fi, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%s is not a directory", src)
	}
	if err := fsutil.CopyTree(src, dstDir); err != nil {
		return "", err
	}
	return dstDir, nil
}
