//go:build v8

package v8engine

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/cryguy/reactssr/internal/core"
	v8 "github.com/tommie/v8go"
)

// v8Runtime implements core.JSRuntime for the V8 engine.
type v8Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ core.JSRuntime = (*v8Runtime)(nil)

// Compile creates an isolate and context, runs setup, then compiles source
// as an unbound script and runs it once in the context.
func Compile(source, filename string, cfg core.RuntimeConfig, setup func(core.JSRuntime) error) (core.JSRuntime, error) {
	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	ctx := v8.NewContext(iso)
	rt := &v8Runtime{iso: iso, ctx: ctx}

	if setup != nil {
		if err := setup(rt); err != nil {
			rt.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	script, err := iso.CompileUnboundScript(source, filename, v8.CompileOptions{})
	if err != nil {
		rt.Close()
		return nil, &core.CompileError{Filename: filename, Diagnostic: diagnostic(err), Err: err}
	}
	if _, err := script.Run(ctx); err != nil {
		rt.Close()
		return nil, &core.CompileError{Filename: filename, Diagnostic: diagnostic(err), Err: err}
	}

	return rt, nil
}

// diagnostic includes the source location V8 reports, when present.
func diagnostic(err error) string {
	var jsErr *v8.JSError
	if errors.As(err, &jsErr) && jsErr.Location != "" {
		return fmt.Sprintf("%s (at %s)", jsErr.Message, jsErr.Location)
	}
	return err.Error()
}

// Eval evaluates JavaScript and discards the result.
func (r *v8Runtime) Eval(js string) error {
	_, err := r.ctx.RunScript(js, "eval.js")
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *v8Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil || !val.IsString() {
		return "", fmt.Errorf("expected string result")
	}
	return val.String(), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *v8Runtime) EvalBool(js string) (bool, error) {
	val, err := r.ctx.RunScript(js, "eval_bool.js")
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.Boolean(), nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
//
// Supported Go function signatures:
//   - func(args...): no return, JS function returns undefined
//   - func(args...) T: single return, JS function returns T
//   - func(args...) (T, error): on success returns T, on error throws
//
// Supported argument and return types: string, int, float64, bool
func (r *v8Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()

		if len(args) < fnType.NumIn() {
			msg := fmt.Sprintf("%s requires at least %d argument(s), got %d", name, fnType.NumIn(), len(args))
			jsMsg, _ := v8.NewValue(r.iso, msg)
			r.iso.ThrowException(jsMsg)
			return nil
		}

		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			goArgs[i] = jsToGoArg(args[i], fnType.In(i))
		}

		results := fnVal.Call(goArgs)

		switch fnType.NumOut() {
		case 0:
			return nil
		case 1:
			return goToJSValue(r.iso, results[0])
		case 2:
			errVal := results[1]
			if !errVal.IsNil() {
				msg := fmt.Sprintf("calling %s: %s", name, errVal.Interface().(error).Error())
				jsMsg, _ := v8.NewValue(r.iso, msg)
				r.iso.ThrowException(jsMsg)
				return nil
			}
			return goToJSValue(r.iso, results[0])
		default:
			return nil
		}
	})

	return r.ctx.Global().Set(name, tmpl.GetFunction(r.ctx))
}

// Interrupt terminates the script currently running in the isolate.
func (r *v8Runtime) Interrupt() {
	r.iso.TerminateExecution()
}

// Close disposes the context and isolate.
func (r *v8Runtime) Close() {
	if r.ctx != nil {
		r.ctx.Close()
		r.ctx = nil
	}
	if r.iso != nil {
		r.iso.Dispose()
		r.iso = nil
	}
}

func jsToGoArg(val *v8.Value, targetType reflect.Type) reflect.Value {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(val.String())
	case reflect.Int:
		return reflect.ValueOf(int(val.Integer()))
	case reflect.Float64:
		return reflect.ValueOf(val.Number())
	case reflect.Bool:
		return reflect.ValueOf(val.Boolean())
	default:
		return reflect.Zero(targetType)
	}
}

func goToJSValue(iso *v8.Isolate, val reflect.Value) *v8.Value {
	if !val.IsValid() {
		return nil
	}
	var v *v8.Value
	switch val.Kind() {
	case reflect.String:
		v, _ = v8.NewValue(iso, val.String())
	case reflect.Int, reflect.Int64, reflect.Int32:
		v, _ = v8.NewValue(iso, int32(val.Int()))
	case reflect.Float64, reflect.Float32:
		v, _ = v8.NewValue(iso, val.Float())
	case reflect.Bool:
		v, _ = v8.NewValue(iso, val.Bool())
	}
	return v
}
