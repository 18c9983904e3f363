package reactssr

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cryguy/reactssr/internal/core"
)

// countCompiles wraps the renderer's compiler and counts invocations.
func countCompiles(r *Renderer) *atomic.Int32 {
	var n atomic.Int32
	inner := r.cache.compile
	r.cache.compile = func(source, filename string, cfg core.RuntimeConfig, setup func(core.JSRuntime) error) (core.JSRuntime, error) {
		n.Add(1)
		return inner(source, filename, cfg, setup)
	}
	return &n
}

func TestContextCache_ConcurrentFirstUseCompilesOnce(t *testing.T) {
	r := newTestRenderer(t)
	compiles := countCompiles(r)

	const workers = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]*execContext, workers)
		errs  = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i], errs[i] = r.cache.get()
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if got[i] != got[0] {
			t.Fatalf("worker %d saw a different context", i)
		}
	}
	if n := compiles.Load(); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
}

func TestContextCache_ConcurrentRenders(t *testing.T) {
	r := newTestRenderer(t)
	compiles := countCompiles(r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				html, err := r.RenderToString("Hello", map[string]any{"name": "x"})
				if err != nil {
					t.Error(err)
					return
				}
				if string(html) != `<div data-reactid=".0">Hello x</div>` {
					t.Errorf("markup = %q", html)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := compiles.Load(); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
}

func TestContextCache_ReusesContext(t *testing.T) {
	r := newTestRenderer(t)
	compiles := countCompiles(r)

	first, err := r.cache.get()
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.cache.get()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("get returned a new context")
	}
	if n := compiles.Load(); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
}

func TestContextCache_MissingSources(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		resource string
	}{
		{"library", func(c *Config) { c.LibraryPath = "testdata/nope.js" }, "library"},
		{"components", func(c *Config) { c.ComponentsPath = "testdata/nope.js" }, "components"},
		{"unset library", func(c *Config) { c.LibraryPath = "" }, "library"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, tt.mutate)

			_, err := r.RenderToString("Hello", nil)
			var rnf *ResourceNotFoundError
			if !errors.As(err, &rnf) {
				t.Fatalf("err = %v, want ResourceNotFoundError", err)
			}
			if rnf.Resource != tt.resource {
				t.Errorf("resource = %q, want %q", rnf.Resource, tt.resource)
			}
		})
	}
}

func TestContextCache_CompilationErrors(t *testing.T) {
	lib := mustRead(t, "testdata/fake-react.js")

	tests := []struct {
		name   string
		loader SourceLoader
		want   string
	}{
		{"syntax error", StaticLoader{Library: lib, Components: mustRead(t, "testdata/syntax-error.js")}, ""},
		{"top level throws", StaticLoader{Library: lib, Components: "throw new Error('bad bundle');"}, "bad bundle"},
		{"library missing entry point", StaticLoader{Library: "var x = 1;", Components: ""}, "React.renderComponentToString"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, func(c *Config) { c.Loader = tt.loader })

			err := r.Warm()
			var ce *CompilationError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want CompilationError", err)
			}
			if ce.Diagnostic == "" {
				t.Error("empty diagnostic")
			}
			if !strings.Contains(ce.Diagnostic, tt.want) {
				t.Errorf("diagnostic %q does not mention %q", ce.Diagnostic, tt.want)
			}
			if r.cache.ctx.Load() != nil {
				t.Error("failed build was cached")
			}
		})
	}
}

// flakyLoader fails the first library load.
type flakyLoader struct {
	StaticLoader
	calls atomic.Int32
}

func (l *flakyLoader) LoadLibrary() (string, error) {
	if l.calls.Add(1) == 1 {
		return "", errors.New("disk not ready")
	}
	return l.StaticLoader.LoadLibrary()
}

func TestContextCache_FailedBuildIsRetried(t *testing.T) {
	loader := &flakyLoader{StaticLoader: StaticLoader{
		Library:    mustRead(t, "testdata/fake-react.js"),
		Components: mustRead(t, "testdata/components.js"),
	}}
	r := newTestRenderer(t, func(c *Config) { c.Loader = loader })

	_, err := r.RenderToString("Hello", map[string]any{"name": "a"})
	var rnf *ResourceNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("first render err = %v, want ResourceNotFoundError", err)
	}

	html, err := r.RenderToString("Hello", map[string]any{"name": "b"})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !strings.Contains(string(html), "Hello b") {
		t.Errorf("markup = %q", html)
	}
}

func TestContextCache_CloseThenRender(t *testing.T) {
	r := newTestRenderer(t)
	compiles := countCompiles(r)

	if err := r.Warm(); err != nil {
		t.Fatal(err)
	}
	r.Close()
	if _, err := r.RenderToString("Hello", map[string]any{"name": "z"}); err != nil {
		t.Fatal(err)
	}
	if n := compiles.Load(); n != 2 {
		t.Errorf("compiled %d times, want 2", n)
	}
}

func TestAssembleSource(t *testing.T) {
	names := LibraryNames{Global: "Lib", RenderEntry: "toString", MountEntry: "mount"}
	got := assembleSource(names, "LIB", "COMPONENTS")
	want := "var global = global || this;\nLIB\n;\nLib = global.Lib;\nCOMPONENTS\n;\n"
	if got != want {
		t.Errorf("assembleSource =\n%s\nwant\n%s", got, want)
	}
}
