package core

import "fmt"

// CompileError is returned by a Compiler when the source fails to parse or
// its top-level evaluation throws.
type CompileError struct {
	Filename   string
	Diagnostic string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s: %s", e.Filename, e.Diagnostic)
}

func (e *CompileError) Unwrap() error { return e.Err }
