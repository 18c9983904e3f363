//go:build !v8

package quickjs

import (
	"fmt"

	"github.com/cryguy/reactssr/internal/core"
	"modernc.org/quickjs"
)

// qjsRuntime implements core.JSRuntime for the QuickJS engine.
type qjsRuntime struct {
	vm *quickjs.VM
}

var _ core.JSRuntime = (*qjsRuntime)(nil)

// Compile creates a QuickJS VM, runs setup against it and evaluates source
// in the global scope. The VM is closed on any failure.
func Compile(source, filename string, cfg core.RuntimeConfig, setup func(core.JSRuntime) error) (core.JSRuntime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}

	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}

	rt := &qjsRuntime{vm: vm}
	if setup != nil {
		if err := setup(rt); err != nil {
			vm.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// QuickJS parses and runs in one step; a syntax error and a throwing
	// top level both surface here.
	v, err := vm.EvalValue(source, quickjs.EvalGlobal)
	if err != nil {
		vm.Close()
		return nil, &core.CompileError{Filename: filename, Diagnostic: err.Error(), Err: err}
	}
	v.Free()

	return rt, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *qjsRuntime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *qjsRuntime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", result)
	}
	return s, nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *qjsRuntime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are unwrapped: on success returns T, on
// error throws a TypeError. The QuickJS Go wrapper returns multi-value
// results as JS arrays, hence the JS shim.
func (r *qjsRuntime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// Interrupt aborts the currently running evaluation.
func (r *qjsRuntime) Interrupt() {
	r.vm.Interrupt()
}

// Close releases the VM.
func (r *qjsRuntime) Close() {
	if r.vm != nil {
		r.vm.Close()
		r.vm = nil
	}
}
