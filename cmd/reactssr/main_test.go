package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/cryguy/reactssr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	testLibrary    = filepath.Join("..", "..", "testdata", "fake-react.js")
	testComponents = filepath.Join("..", "..", "testdata", "components.js")
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	r, err := reactssr.New(reactssr.Config{
		LibraryPath:    testLibrary,
		ComponentsPath: testComponents,
		Registerer:     reg,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	srv := httptest.NewServer(newRouter(r, zap.NewNop(), reg))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, u string) (int, string) {
	t.Helper()
	resp, err := http.Get(u)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestRouter_Components(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{"fragment", "/components/Hello?props=" + url.QueryEscape(`{"name":"web"}`), http.StatusOK, "Hello web</div></div><script"},
		{"tag", "/components/Hello?tag=span", http.StatusOK, "<span id="},
		{"ujs", "/components/Hello?ujs=1&props=" + url.QueryEscape(`{"name":"u"}`), http.StatusOK, `data-react="Hello" data-name="u"`},
		{"dotted", "/components/App.Widgets.Counter?props=" + url.QueryEscape(`{"count":2}`), http.StatusOK, `<span class="count">2</span>`},
		{"missing", "/components/Nope", http.StatusNotFound, "not defined"},
		{"bad name", "/components/" + url.PathEscape("alert(1)"), http.StatusBadRequest, "invalid component name"},
		{"bad props", "/components/Hello?props=" + url.QueryEscape("{"), http.StatusBadRequest, "invalid props"},
		{"component throws", "/components/Broken", http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, srv.URL+tt.path)
			if status != tt.status {
				t.Errorf("status = %d, want %d (%s)", status, tt.status, body)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestRouter_ClientScriptAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, body := get(t, srv.URL+"/react_ujs.js")
	if status != http.StatusOK || !strings.Contains(body, "var LIBRARY = 'React';") {
		t.Errorf("react_ujs.js: %d %q", status, body)
	}

	get(t, srv.URL+"/components/Hello")
	status, body = get(t, srv.URL+"/metrics")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	for _, want := range []string{"reactssr_context_builds_total 1", `reactssr_render_duration_seconds_count{outcome="ok"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRouter_Brotli(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path     string
		contains string
	}{
		{"/components/Hello?props=" + url.QueryEscape(`{"name":"br"}`), "Hello br</div>"},
		{"/react_ujs.js", "react-ujs has already been loaded!"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Accept-Encoding", "br, gzip")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if enc := resp.Header.Get("Content-Encoding"); enc != "br" {
				t.Fatalf("Content-Encoding = %q, want br", enc)
			}
			body, err := io.ReadAll(brotli.NewReader(resp.Body))
			if err != nil {
				t.Fatalf("decoding brotli body: %v", err)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&reactssr.ComponentNotFoundError{Component: "X"}, http.StatusNotFound},
		{&reactssr.InvalidComponentNameError{Component: "x y"}, http.StatusBadRequest},
		{&reactssr.SerializationError{Err: errors.New("x")}, http.StatusBadRequest},
		{&reactssr.CompilationError{Diagnostic: "x"}, http.StatusInternalServerError},
		{reactssr.ErrRenderTimeout, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRenderCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bare", []string{"--bare", "Hello", `{"name":"cli"}`}, `<div data-reactid=".0">Hello cli</div>`},
		{"fragment", []string{"--id", "x", "--tag", "span", "Hello"}, `<span id="x"><div data-reactid=".0">Hello undefined</div></span><script`},
		{"ujs", []string{"--ujs", "--id", "x", "Hello", `{"name":"u"}`}, `<div id="x" data-react="Hello" data-name="u">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(append([]string{"render", "--library", testLibrary, "--components", testComponents}, tt.args...))
			if err := cmd.Execute(); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q does not contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestRenderCmd_Errors(t *testing.T) {
	for name, args := range map[string][]string{
		"missing component": {"Nope"},
		"bad props":         {"Hello", "not json"},
	} {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetArgs(append([]string{"render", "--library", testLibrary, "--components", testComponents}, args...))
			if err := cmd.Execute(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBundleCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "components.js")
	cmd := newRootCmd()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"bundle", filepath.Join("..", "..", "testdata", "bundle", "index.jsx"), "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	r, err := reactssr.New(reactssr.Config{LibraryPath: testLibrary, ComponentsPath: out})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	html, err := r.RenderToString("Greeter", map[string]any{"name": "cli"})
	if err != nil {
		t.Fatal(err)
	}
	if string(html) != "<h1>Hi cli</h1>" {
		t.Errorf("markup = %q", html)
	}
}
