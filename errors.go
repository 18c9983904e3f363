package reactssr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRenderNotSynchronous means the string render entry point returned
	// without invoking its completion callback. The bridge relies on that
	// callback firing before the call returns.
	ErrRenderNotSynchronous = errors.New("render callback was not invoked synchronously")

	// ErrRenderTimeout means the render watchdog interrupted the engine.
	ErrRenderTimeout = errors.New("render timed out")

	errDefaultInUse  = errors.New("default renderer already created")
	errContextClosed = errors.New("render context closed")
)

// ResourceNotFoundError reports a library or components bundle that could not
// be located or read.
type ResourceNotFoundError struct {
	Resource string // "library" or "components"
	Path     string
	Err      error
}

func (e *ResourceNotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s source not found: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("%s source not found at %s: %v", e.Resource, e.Path, e.Err)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// CompilationError reports a combined bundle that failed to compile or whose
// top level threw. It indicates a deployment problem, not a request problem.
type CompilationError struct {
	Diagnostic string
	Err        error
}

func (e *CompilationError) Error() string {
	return "compiling render context: " + e.Diagnostic
}

func (e *CompilationError) Unwrap() error { return e.Err }

// ComponentNotFoundError reports a component name that does not resolve to a
// function in the execution context.
type ComponentNotFoundError struct {
	Component string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %q is not defined in the render context", e.Component)
}

// InvalidComponentNameError reports a name that is not a plain (optionally
// dotted) identifier and therefore cannot be spliced into script source.
type InvalidComponentNameError struct {
	Component string
}

func (e *InvalidComponentNameError) Error() string {
	return fmt.Sprintf("invalid component name %q", e.Component)
}

// SerializationError reports arguments that could not be JSON-encoded. Path
// points at the offending value when it could be located, e.g. "items[2].at".
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encoding component arguments: %v", e.Err)
	}
	return fmt.Sprintf("encoding component arguments at %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// RenderError wraps any other engine failure raised while rendering.
type RenderError struct {
	Component string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Component, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// AlreadyMountedError is returned by a Dispatcher that finds an element it
// has mounted before.
type AlreadyMountedError struct {
	Component string
	ID        string
}

func (e *AlreadyMountedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "component %q already mounted", e.Component)
	if e.ID != "" {
		fmt.Fprintf(&b, " on #%s", e.ID)
	}
	return b.String()
}
