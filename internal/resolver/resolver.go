// Package resolver turns a configured model name into a local artifact
// directory: it queries the registry for every version of the qualified
// name, picks the latest one and downloads its artifacts into a cache
// directory owned by that model name.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mlserve/internal/common/fsutil"
	"mlserve/internal/registry"
)

// Artifact is a resolved model: the selected registry version and the local
// directory holding its files.
type Artifact struct {
	Model         string
	QualifiedName string
	Version       string
	RunID         string
	Path          string
	Bytes         int64
}

// Options configures a Resolver. Zero values select defaults.
type Options struct {
	// CacheDir is the base directory; each model gets <CacheDir>/<name>.
	CacheDir string
	// Prefix is prepended to the model name to form the registry name.
	Prefix string
	// Locker serializes downloads across replicas; NoopLocker when nil.
	Locker  Locker
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

// Resolver resolves model names against a registry client.
type Resolver struct {
	client   registry.Client
	cacheDir string
	prefix   string
	locker   Locker
	lockTTL  time.Duration
	log      zerolog.Logger
}

// New constructs a Resolver.
func New(client registry.Client, opts Options) *Resolver {
	r := &Resolver{
		client:   client,
		cacheDir: opts.CacheDir,
		prefix:   opts.Prefix,
		locker:   opts.Locker,
		lockTTL:  opts.LockTTL,
		log:      zerolog.Nop(),
	}
	if r.locker == nil {
		r.locker = NoopLocker{}
	}
	if r.lockTTL <= 0 {
		r.lockTTL = 30 * time.Minute
	}
	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "resolver").Logger()
	}
	return r
}

// QualifiedName maps a model name to its registry name.
func (r *Resolver) QualifiedName(name string) string {
	return r.prefix + name
}

// CacheDir returns the base cache directory.
func (r *Resolver) CacheDir() string { return r.cacheDir }

// Resolve selects the latest registered version of name and downloads it
// into <CacheDir>/<name>, replacing any previous content. Every failure is
// returned as *Error. Resolve never retries.
func (r *Resolver) Resolve(ctx context.Context, name string) (Artifact, error) {
	if err := validateName(name); err != nil {
		return Artifact{}, &Error{Model: name, Kind: KindInvalidName, Err: err}
	}
	qualified := r.QualifiedName(name)
	versions, err := r.client.ListVersions(ctx, qualified)
	if err != nil {
		return Artifact{}, &Error{Model: name, Kind: KindRegistryUnavailable, Err: err}
	}
	latest, ok := registry.SelectLatest(versions)
	if !ok {
		return Artifact{}, &Error{Model: name, Kind: KindNoVersionsFound, Err: fmt.Errorf("%w under %q", ErrNoVersions, qualified)}
	}
	r.log.Info().Str("model", name).Str("registry_name", qualified).Str("version", latest.Version).Str("run_id", latest.RunID).Int("candidates", len(versions)).Msg("version selected")

	unlock, err := r.locker.Lock(ctx, name, r.lockTTL)
	if err != nil {
		return Artifact{}, &Error{Model: name, Kind: KindArtifactFetchFailed, Err: err}
	}
	defer unlock()

	start := time.Now()
	p, err := r.fetch(ctx, name, latest)
	if err != nil {
		return Artifact{}, &Error{Model: name, Kind: KindArtifactFetchFailed, Err: err}
	}
	size, err := fsutil.DirSize(p)
	if err != nil {
		return Artifact{}, &Error{Model: name, Kind: KindArtifactFetchFailed, Err: err}
	}
	r.log.Info().Str("model", name).Str("path", p).Str("size", humanize.Bytes(uint64(size))).Dur("dur", time.Since(start)).Msg("artifact downloaded")
	return Artifact{
		Model:         name,
		QualifiedName: qualified,
		Version:       latest.Version,
		RunID:         latest.RunID,
		Path:          p,
		Bytes:         size,
	}, nil
}

// fetch downloads into a private staging directory and moves it into place,
// so a failed download never leaves a half-written model directory.
func (r *Resolver) fetch(ctx context.Context, name string, v registry.ModelVersion) (string, error) {
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", err
	}
	final := filepath.Join(r.cacheDir, name)
	staging := filepath.Join(r.cacheDir, ".staging-"+name+"-"+uuid.NewString())
	got, err := r.client.FetchArtifact(ctx, v, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}
	rel, err := filepath.Rel(staging, got)
	if err != nil || strings.HasPrefix(rel, "..") {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("registry returned path %q outside %q", got, staging)
	}
	if err := fsutil.ReplaceDir(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}
	return filepath.Join(final, rel), nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("empty model name")
	case name != strings.TrimSpace(name):
		return errors.New("model name has surrounding whitespace")
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return errors.New("model name must not contain path separators")
	}
	return nil
}
