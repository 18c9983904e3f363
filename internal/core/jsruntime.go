package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) holding a
// compiled rendering library and component bundle.
//
// Implementations are not safe for concurrent use. Callers serialize access.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	// A non-string result is an error.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// Arguments of type string, int, float64 and bool are marshaled; a
	// trailing error return throws a TypeError in JS.
	RegisterFunc(name string, fn any) error

	// Interrupt aborts the evaluation currently running on another
	// goroutine. It is the only method safe to call concurrently.
	Interrupt()

	// Close releases the engine. The runtime must not be used afterwards.
	Close()
}

// Compiler compiles source into a fresh engine and runs its top level once.
// setup runs against the new runtime before source is evaluated so that
// host globals (console, etc.) exist while the bundle initializes.
type Compiler func(source, filename string, cfg RuntimeConfig, setup func(JSRuntime) error) (JSRuntime, error)
