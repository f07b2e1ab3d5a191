// Package registry talks to the versioned model registry. A Client lists the
// versions registered under a qualified model name and fetches the artifact
// files of one version into a local directory.
package registry

import (
	"context"
	"fmt"
)

// ModelVersion is one registered version of a model.
type ModelVersion struct {
	// Name is the registry-qualified model name.
	Name string `json:"name"`
	// Version is the registry ordinal, numeric for MLflow.
	Version string `json:"version"`
	// RunID identifies the run that produced the artifacts.
	RunID string `json:"run_id"`
	// Source is the artifact URI recorded by the registry, informational only.
	Source string `json:"source,omitempty"`
	// Status is the registry-reported status (e.g. READY).
	Status string `json:"status,omitempty"`
}

// Client is the registry collaborator consumed by the resolver.
type Client interface {
	// ListVersions returns every version registered under name. A name
	// without versions yields an empty slice and a nil error.
	ListVersions(ctx context.Context, name string) ([]ModelVersion, error)
	// FetchArtifact downloads the artifacts of v into dstDir and returns the
	// local path that holds them.
	FetchArtifact(ctx context.Context, v ModelVersion, dstDir string) (string, error)
}

// StatusError reports a non-2xx response from the registry.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("registry %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("registry %s: status %d: %s", e.Op, e.Status, e.Body)
}
