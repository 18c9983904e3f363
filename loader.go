package reactssr

import (
	"errors"
	"io/fs"
	"os"
)

// SourceLoader supplies the two script blobs compiled into the render
// context. It is called at most once per successful context build.
type SourceLoader interface {
	LoadLibrary() (string, error)
	LoadComponents() (string, error)
}

// FileLoader reads both bundles from the local filesystem.
type FileLoader struct {
	LibraryPath    string
	ComponentsPath string
}

func (l *FileLoader) LoadLibrary() (string, error) {
	return readSource("library", l.LibraryPath, os.ReadFile)
}

func (l *FileLoader) LoadComponents() (string, error) {
	return readSource("components", l.ComponentsPath, os.ReadFile)
}

// FSLoader reads both bundles from an fs.FS, typically an embed.FS holding
// the build output.
type FSLoader struct {
	FS             fs.FS
	LibraryPath    string
	ComponentsPath string
}

func (l *FSLoader) LoadLibrary() (string, error) {
	return readSource("library", l.LibraryPath, l.readFile)
}

func (l *FSLoader) LoadComponents() (string, error) {
	return readSource("components", l.ComponentsPath, l.readFile)
}

func (l *FSLoader) readFile(name string) ([]byte, error) {
	if l.FS == nil {
		return nil, errors.New("no filesystem configured")
	}
	return fs.ReadFile(l.FS, name)
}

// BundleLoader reads the library from disk and produces the components
// bundle by running esbuild over an entry point.
type BundleLoader struct {
	LibraryPath string
	EntryPoint  string
	Options     BundleOptions
}

func (l *BundleLoader) LoadLibrary() (string, error) {
	return readSource("library", l.LibraryPath, os.ReadFile)
}

func (l *BundleLoader) LoadComponents() (string, error) {
	if l.EntryPoint == "" {
		return "", &ResourceNotFoundError{Resource: "components", Err: errors.New("no entry point configured")}
	}
	src, err := BundleComponents(l.EntryPoint, l.Options)
	if err != nil {
		var rnf *ResourceNotFoundError
		if errors.As(err, &rnf) {
			return "", err
		}
		// A bundling failure is a source bug, same as a syntax error.
		return "", &CompilationError{Diagnostic: err.Error(), Err: err}
	}
	return src, nil
}

// StaticLoader serves in-memory sources.
type StaticLoader struct {
	Library    string
	Components string
}

func (l StaticLoader) LoadLibrary() (string, error)    { return l.Library, nil }
func (l StaticLoader) LoadComponents() (string, error) { return l.Components, nil }

func readSource(resource, path string, read func(string) ([]byte, error)) (string, error) {
	if path == "" {
		return "", &ResourceNotFoundError{Resource: resource, Err: errors.New("no path configured")}
	}
	data, err := read(path)
	if err != nil {
		return "", &ResourceNotFoundError{Resource: resource, Path: path, Err: err}
	}
	return string(data), nil
}
