package reactssr

import (
	"os"
	"path/filepath"
	"testing"
)

func testCfg() Config {
	return Config{
		LibraryPath:    filepath.Join("testdata", "fake-react.js"),
		ComponentsPath: filepath.Join("testdata", "components.js"),
		MemoryLimitMB:  64,
	}
}

func newTestRenderer(t *testing.T, mutate ...func(*Config)) *Renderer {
	t.Helper()
	cfg := testCfg()
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

// fixedID pins the generated mount id so fragments are deterministic.
func fixedID(r *Renderer, id string) {
	r.newID = func() string { return id }
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
