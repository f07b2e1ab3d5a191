package manager

import (
	"errors"
	"fmt"
)

// ErrAlreadyLoaded is returned by a second LoadAll call. Loading happens once.
var ErrAlreadyLoaded = errors.New("models already loaded")

// ErrNoOutput is returned when the engine produced zero candidates.
var ErrNoOutput = errors.New("engine returned no outputs")

// errDuplicateName marks a configured name that appeared earlier in the list.
var errDuplicateName = errors.New("duplicate model name")

// ModelNotFoundError is returned by Infer when the name is not in the
// published table. Available lists the names that are.
type ModelNotFoundError struct {
	Model     string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("Model '%s' not found", e.Model)
}

// IsModelNotFound reports whether the error indicates a missing model name.
func IsModelNotFound(err error) bool {
	var nf *ModelNotFoundError
	return errors.As(err, &nf)
}

// EngineError wraps a failure to construct an engine from a resolved artifact.
type EngineError struct {
	Model string
	Path  string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("construct engine for %q from %s: %v", e.Model, e.Path, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// IsEngineConstructionFailed reports whether err came from InferenceAdapter.Load.
func IsEngineConstructionFailed(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}

// panicError carries a recovered panic from a load step.
type panicError struct {
	stage Stage
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic during %s: %v", e.stage, e.value)
}
