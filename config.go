package reactssr

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config holds runtime configuration for a Renderer.
type Config struct {
	LibraryPath    string // rendering library bundle, default react.js
	ComponentsPath string // application components bundle, default components.js

	// Loader overrides LibraryPath/ComponentsPath when set.
	Loader SourceLoader

	LibraryGlobal string // global the library exports, default "React"
	RenderEntry   string // string render entry point, default "renderComponentToString"
	MountEntry    string // live mount entry point, default "renderComponent"

	MemoryLimitMB int           // per-context heap limit, 0 for engine default
	RenderTimeout time.Duration // 0 disables the render watchdog

	Logger     *zap.Logger           // defaults to a no-op logger
	Registerer prometheus.Registerer // nil disables metrics registration
}

const (
	defaultLibraryPath    = "react.js"
	defaultComponentsPath = "components.js"

	defaultLibraryGlobal = "React"
	defaultRenderEntry   = "renderComponentToString"
	defaultMountEntry    = "renderComponent"
)

// ConfigFromEnv builds a Config from REACTSSR_* environment variables.
//
//	REACTSSR_LIBRARY         path to the rendering library bundle, default react.js
//	REACTSSR_COMPONENTS      path to the components bundle, default components.js
//	REACTSSR_GLOBAL          library global name
//	REACTSSR_MEMORY_MB       per-context heap limit
//	REACTSSR_RENDER_TIMEOUT  render watchdog, a time.ParseDuration string
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		LibraryPath:    os.Getenv("REACTSSR_LIBRARY"),
		ComponentsPath: os.Getenv("REACTSSR_COMPONENTS"),
		LibraryGlobal:  os.Getenv("REACTSSR_GLOBAL"),
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = defaultLibraryPath
	}
	if cfg.ComponentsPath == "" {
		cfg.ComponentsPath = defaultComponentsPath
	}

	if v := os.Getenv("REACTSSR_MEMORY_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid REACTSSR_MEMORY_MB %q", v)
		}
		cfg.MemoryLimitMB = n
	}

	if v := os.Getenv("REACTSSR_RENDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REACTSSR_RENDER_TIMEOUT %q: %w", v, err)
		}
		cfg.RenderTimeout = d
	}

	return cfg, nil
}

// withDefaults fills unset fields and validates the library names, which are
// spliced into generated script source.
func (c Config) withDefaults() (Config, error) {
	if c.LibraryGlobal == "" {
		c.LibraryGlobal = defaultLibraryGlobal
	}
	if c.RenderEntry == "" {
		c.RenderEntry = defaultRenderEntry
	}
	if c.MountEntry == "" {
		c.MountEntry = defaultMountEntry
	}
	for _, name := range []string{c.LibraryGlobal, c.RenderEntry, c.MountEntry} {
		if !identPattern.MatchString(name) || reservedWords[name] {
			return Config{}, fmt.Errorf("invalid library identifier %q", name)
		}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Loader == nil {
		if c.LibraryPath == "" {
			c.LibraryPath = defaultLibraryPath
		}
		if c.ComponentsPath == "" {
			c.ComponentsPath = defaultComponentsPath
		}
		c.Loader = &FileLoader{LibraryPath: c.LibraryPath, ComponentsPath: c.ComponentsPath}
	}
	return c, nil
}

// LibraryNames are the script identifiers generated code calls into.
type LibraryNames struct {
	Global      string
	RenderEntry string
	MountEntry  string
}

func (c Config) names() LibraryNames {
	return LibraryNames{Global: c.LibraryGlobal, RenderEntry: c.RenderEntry, MountEntry: c.MountEntry}
}

// Names returns the library identifiers generated scripts call into.
func (r *Renderer) Names() LibraryNames {
	return r.names
}
