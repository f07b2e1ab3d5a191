package resolver

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind string

const (
	KindInvalidName         Kind = "invalid_name"
	KindRegistryUnavailable Kind = "registry_unavailable"
	KindNoVersionsFound     Kind = "no_versions_found"
	KindArtifactFetchFailed Kind = "artifact_fetch_failed"
)

// ErrNoVersions is the cause carried by KindNoVersionsFound errors.
var ErrNoVersions = errors.New("no versions registered")

// Error is the single failure type returned by Resolve. It carries the
// configured model name and the underlying cause.
type Error struct {
	Model string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve %q: %s: %v", e.Model, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// IsNoVersionsFound reports whether err means the registry holds no versions.
func IsNoVersionsFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNoVersionsFound
}

// IsArtifactFetchFailed reports whether err is a download or lock failure.
func IsArtifactFetchFailed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindArtifactFetchFailed
}

// IsRegistryUnavailable reports whether the registry could not be queried.
func IsRegistryUnavailable(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRegistryUnavailable
}

// IsResolutionError reports whether err came from Resolve.
func IsResolutionError(err error) bool {
	_, ok := kindOf(err)
	return ok
}
