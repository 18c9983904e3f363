package reactssr

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cryguy/reactssr/internal/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// unfilledMarker is thrown by the render wrapper when the completion callback
// has not fired by the time the render entry point returns.
const unfilledMarker = "__reactssr_unfilled__"

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"await": true, "implements": true, "interface": true, "package": true,
	"private": true, "protected": true, "public": true,
}

// Renderer renders components inside one lazily compiled script context.
// It is safe for concurrent use.
type Renderer struct {
	cfg     Config
	names   LibraryNames
	cache   *contextCache
	log     *zap.Logger
	metrics *metrics
	newID   func() string
}

// New creates a Renderer. Nothing is loaded or compiled until the first
// render.
func New(cfg Config) (*Renderer, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	return &Renderer{
		cfg:     cfg,
		names:   cfg.names(),
		log:     cfg.Logger,
		metrics: m,
		newID:   newMountID,
		cache: &contextCache{
			cfg:     cfg,
			compile: newCompiler(),
			log:     cfg.Logger,
			metrics: m,
		},
	}, nil
}

// Warm builds the render context now instead of on the first render, so a
// missing or broken bundle fails at startup.
func (r *Renderer) Warm() error {
	_, err := r.cache.get()
	return err
}

// Close releases the compiled context. A later render compiles a new one.
func (r *Renderer) Close() {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	if ec := r.cache.ctx.Swap(nil); ec != nil {
		ec.mu.Lock()
		ec.closeLocked()
		ec.mu.Unlock()
	}
}

// RenderToString renders the named component with args and returns its
// markup. args must encode to a JSON object; nil means {}.
func (r *Renderer) RenderToString(name string, args any) (template.HTML, error) {
	if err := validateComponentName(name); err != nil {
		return "", err
	}
	argsJSON, err := encodeArgs(args)
	if err != nil {
		return "", err
	}
	html, err := r.renderJSON(name, argsJSON)
	if err != nil {
		return "", err
	}
	return template.HTML(html), nil
}

// renderJSON renders with already-encoded arguments. Callers pairing the
// markup with an activation script pass the same bytes to both.
func (r *Renderer) renderJSON(name string, argsJSON []byte) (string, error) {
	start := time.Now()
	html, err := r.render(name, argsJSON)
	elapsed := time.Since(start)

	r.metrics.renderDuration.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
	if err != nil {
		r.log.Debug("render failed", zap.String("component", name), zap.Error(err))
		return "", err
	}
	r.log.Debug("rendered component",
		zap.String("component", name),
		zap.Int("bytes", len(html)),
		zap.Duration("duration", elapsed))
	return html, nil
}

func (r *Renderer) render(name string, argsJSON []byte) (string, error) {
	for {
		ec, err := r.cache.get()
		if err != nil {
			return "", err
		}
		html, err := r.renderIn(ec, name, argsJSON)
		if errors.Is(err, errContextClosed) {
			// Another render discarded ec after a timeout; build afresh.
			continue
		}
		return html, err
	}
}

func (r *Renderer) renderIn(ec *execContext, name string, argsJSON []byte) (string, error) {
	var html string
	err := ec.do(func(rt core.JSRuntime) (err error) {
		ok, err := rt.EvalBool(existsScript(name))
		if err != nil {
			return &RenderError{Component: name, Err: err}
		}
		if !ok {
			return &ComponentNotFoundError{Component: name}
		}

		var (
			timedOut atomic.Bool
			watchdog *time.Timer
		)
		if timeout := r.cfg.RenderTimeout; timeout > 0 {
			watchdog = time.AfterFunc(timeout, func() {
				timedOut.Store(true)
				rt.Interrupt()
			})
		}

		// An interrupted engine may be left in any state; drop it so the
		// next render compiles a fresh context. The watchdog is stopped
		// first so it never interrupts a closed engine.
		defer func() {
			if watchdog != nil {
				watchdog.Stop()
			}
			p := recover()
			if p == nil && !timedOut.Load() {
				return
			}
			r.log.Warn("discarding render context",
				zap.String("component", name),
				zap.Bool("timed_out", timedOut.Load()),
				zap.Any("panic", p))
			ec.closeLocked()
			r.cache.forget(ec)
			switch {
			case timedOut.Load():
				err = fmt.Errorf("rendering %s (limit %v): %w", name, r.cfg.RenderTimeout, ErrRenderTimeout)
			default:
				err = &RenderError{Component: name, Err: fmt.Errorf("engine panic: %v", p)}
			}
		}()

		html, err = rt.EvalString(renderScript(r.names, name, argsJSON))
		switch {
		case err == nil:
			return nil
		case strings.Contains(err.Error(), unfilledMarker):
			return fmt.Errorf("rendering %s with %s.%s: %w", name, r.names.Global, r.names.RenderEntry, ErrRenderNotSynchronous)
		default:
			return &RenderError{Component: name, Err: err}
		}
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// existsScript evaluates to true when name resolves to a function. Member
// access on a missing namespace throws, hence the try.
func existsScript(name string) string {
	return fmt.Sprintf("(function() { try { return typeof %s === 'function'; } catch (e) { return false; } })()", name)
}

// renderScript wraps the callback-style string render in an expression that
// returns the markup. The callback fires before the entry point returns; a
// library that returns the string directly is accepted too. The library,
// component and arguments are resolved at global scope and passed in, so no
// global name can collide with the wrapper's locals.
func renderScript(names LibraryNames, name string, argsJSON []byte) string {
	return fmt.Sprintf(`(function(lib, component, props) {
	var html = "", done = false;
	var ret = lib.%s(component(props), function(s) { html = s; done = true; });
	if (!done && typeof ret === "string") { html = ret; done = true; }
	if (!done) throw new Error(%q);
	return String(html);
})(%s, %s, %s)`, names.RenderEntry, unfilledMarker, names.Global, name, argsJSON)
}

// validateComponentName accepts identifiers and dotted member paths such as
// App.Widgets.Hello. Anything else could inject script.
func validateComponentName(name string) error {
	if name == "" {
		return &InvalidComponentNameError{Component: name}
	}
	for _, part := range strings.Split(name, ".") {
		if !identPattern.MatchString(part) || reservedWords[part] {
			return &InvalidComponentNameError{Component: name}
		}
	}
	return nil
}

// encodeArgs produces the one JSON encoding shared by the server render and
// the client mount. encoding/json escapes <, > and & as well as U+2028 and
// U+2029, so the output is safe inside a script element and as a JS literal.
func encodeArgs(args any) ([]byte, error) {
	if args == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, &SerializationError{Path: locateUnencodable(reflect.ValueOf(args), "", 0), Err: err}
	}
	if string(data) == "null" {
		return []byte("{}"), nil
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, &SerializationError{Err: errors.New("arguments must encode to a JSON object")}
	}
	return data, nil
}

const maxLocateDepth = 32

// locateUnencodable walks v and returns the path of the deepest value that
// still fails to encode.
func locateUnencodable(v reflect.Value, path string, depth int) string {
	if !v.IsValid() || depth > maxLocateDepth {
		return path
	}
	if _, err := json.Marshal(v.Interface()); err == nil {
		return ""
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return path
		}
		if p := locateUnencodable(v.Elem(), path, depth+1); p != "" {
			return p
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if p := locateUnencodable(iter.Value(), joinPath(path, fmt.Sprint(iter.Key().Interface())), depth+1); p != "" {
				return p
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if p := locateUnencodable(v.Index(i), path+"["+strconv.Itoa(i)+"]", depth+1); p != "" {
				return p
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			key := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					key = tagName
				}
			}
			if p := locateUnencodable(v.Field(i), joinPath(path, key), depth+1); p != "" {
				return p
			}
		}
	}
	if path == "" {
		return "(root)"
	}
	return path
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// newMountID returns 32 random hex characters.
func newMountID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
