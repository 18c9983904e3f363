package reactssr

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryguy/reactssr/internal/core"
	"github.com/cryguy/reactssr/internal/webapi"
	"go.uber.org/zap"
)

// execContext is the compiled library plus components. Engines do not
// support concurrent calls, so every evaluation holds mu.
type execContext struct {
	mu sync.Mutex
	rt core.JSRuntime
}

func (ec *execContext) do(fn func(rt core.JSRuntime) error) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.rt == nil {
		return errContextClosed
	}
	return fn(ec.rt)
}

// closeLocked releases the engine. The caller holds mu.
func (ec *execContext) closeLocked() {
	if ec.rt != nil {
		ec.rt.Close()
		ec.rt = nil
	}
}

// contextCache lazily builds one execContext and keeps it for the lifetime
// of the Renderer. Only the build is serialized; once stored, get is a single
// atomic load. Failed builds are not remembered, so the next caller tries
// again with whatever the loader returns then. The one exception to "built
// once" is a context discarded after a render timeout.
type contextCache struct {
	cfg     Config
	compile core.Compiler
	log     *zap.Logger
	metrics *metrics

	ctx atomic.Pointer[execContext]
	mu  sync.Mutex
}

func (c *contextCache) get() (*execContext, error) {
	if ec := c.ctx.Load(); ec != nil {
		return ec, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ec := c.ctx.Load(); ec != nil {
		return ec, nil
	}

	ec, err := c.build()
	if err != nil {
		return nil, err
	}
	c.ctx.Store(ec)
	return ec, nil
}

// forget drops ec if it is still the cached context.
func (c *contextCache) forget(ec *execContext) {
	c.ctx.CompareAndSwap(ec, nil)
}

func (c *contextCache) build() (*execContext, error) {
	start := time.Now()

	library, err := c.cfg.Loader.LoadLibrary()
	if err != nil {
		return nil, asLoadError("library", err)
	}
	components, err := c.cfg.Loader.LoadComponents()
	if err != nil {
		return nil, asLoadError("components", err)
	}

	names := c.cfg.names()
	source := assembleSource(names, library, components)

	c.metrics.contextBuilds.Inc()
	rt, err := c.compile(source, "reactssr-context.js", core.RuntimeConfig{MemoryLimitMB: c.cfg.MemoryLimitMB}, c.setup)
	if err != nil {
		var ce *core.CompileError
		if errors.As(err, &ce) {
			return nil, &CompilationError{Diagnostic: ce.Diagnostic, Err: err}
		}
		return nil, &CompilationError{Diagnostic: err.Error(), Err: err}
	}

	ok, err := rt.EvalBool(fmt.Sprintf("typeof %s !== 'undefined' && typeof %s.%s === 'function'",
		names.Global, names.Global, names.RenderEntry))
	if err != nil || !ok {
		rt.Close()
		return nil, &CompilationError{
			Diagnostic: fmt.Sprintf("library does not expose %s.%s", names.Global, names.RenderEntry),
			Err:        err,
		}
	}

	c.log.Info("render context compiled",
		zap.Int("library_bytes", len(library)),
		zap.Int("components_bytes", len(components)),
		zap.Duration("duration", time.Since(start)))

	return &execContext{rt: rt}, nil
}

// setup installs host globals before the bundles run.
func (c *contextCache) setup(rt core.JSRuntime) error {
	jsLog := c.log.With(zap.String("source", "js"))
	return webapi.SetupConsole(rt, func(level, message string) {
		switch level {
		case "error":
			jsLog.Error(message)
		case "warn":
			jsLog.Warn(message)
		case "debug", "trace":
			jsLog.Debug(message)
		default:
			jsLog.Info(message)
		}
	})
}

// assembleSource concatenates both bundles into one compilation unit. The
// preamble gives CommonJS-style bundles a `global` to attach to and pins the
// library export as a context-global binding before components run.
func assembleSource(names LibraryNames, library, components string) string {
	var b strings.Builder
	b.Grow(len(library) + len(components) + 128)
	b.WriteString("var global = global || this;\n")
	b.WriteString(library)
	b.WriteString("\n;\n")
	fmt.Fprintf(&b, "%s = global.%s;\n", names.Global, names.Global)
	b.WriteString(components)
	b.WriteString("\n;\n")
	return b.String()
}

func asLoadError(resource string, err error) error {
	var (
		rnf  *ResourceNotFoundError
		comp *CompilationError
	)
	if errors.As(err, &rnf) || errors.As(err, &comp) {
		return err
	}
	return &ResourceNotFoundError{Resource: resource, Err: err}
}
