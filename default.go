package reactssr

import (
	"html/template"
	"sync"
)

// The process-wide Renderer. Only the accessors below reach it.
var defaultRenderer struct {
	mu  sync.Mutex
	r   *Renderer
	cfg *Config
}

// Configure sets the configuration Default builds from. It must be called
// before the first use of Default; later calls return an error.
func Configure(cfg Config) error {
	defaultRenderer.mu.Lock()
	defer defaultRenderer.mu.Unlock()
	if defaultRenderer.r != nil {
		return errDefaultInUse
	}
	defaultRenderer.cfg = &cfg
	return nil
}

// Default returns the process-wide Renderer, creating it on first use from
// the Configure'd config or, failing that, ConfigFromEnv.
func Default() (*Renderer, error) {
	defaultRenderer.mu.Lock()
	defer defaultRenderer.mu.Unlock()
	if defaultRenderer.r != nil {
		return defaultRenderer.r, nil
	}

	var cfg Config
	if defaultRenderer.cfg != nil {
		cfg = *defaultRenderer.cfg
	} else {
		var err error
		if cfg, err = ConfigFromEnv(); err != nil {
			return nil, err
		}
	}
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defaultRenderer.r = r
	return r, nil
}

// ReactComponent renders with the process-wide Renderer.
func ReactComponent(name string, args any, opts ...Option) (template.HTML, error) {
	r, err := Default()
	if err != nil {
		return "", err
	}
	return r.ReactComponent(name, args, opts...)
}

// RenderToString renders with the process-wide Renderer.
func RenderToString(name string, args any) (template.HTML, error) {
	r, err := Default()
	if err != nil {
		return "", err
	}
	return r.RenderToString(name, args)
}
