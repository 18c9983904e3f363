package reactssr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// componentsGlobal is the IIFE global esbuild assigns the entry's exports to
// before they are copied onto globalThis.
const componentsGlobal = "__reactssr_components__"

// BundleOptions configures BundleComponents.
type BundleOptions struct {
	// Globals maps bare import specifiers to globals already defined in the
	// render context, e.g. {"react": "React"}. Defaults to react -> React.
	Globals map[string]string

	// Minify shrinks the output.
	Minify bool
}

// BundleComponents uses esbuild to bundle a components entry point and its
// imports into a single classic script. Every export of the entry becomes a
// global so component names resolve the same way hand-written bundles do.
//
// A source with no import or export statements is a classic script already:
// .jsx, .ts and .tsx files are only transformed, keeping their top-level
// declarations global, and plain .js is returned as-is.
func BundleComponents(entryPoint string, opts BundleOptions) (string, error) {
	source, err := os.ReadFile(entryPoint)
	if err != nil {
		return "", &ResourceNotFoundError{Resource: "components", Path: entryPoint, Err: err}
	}

	src := string(source)
	if !needsBundling(src) {
		loader, ok := scriptLoaders[strings.ToLower(filepath.Ext(entryPoint))]
		if !ok {
			return src, nil
		}
		return transformScript(src, entryPoint, loader, opts)
	}

	globals := opts.Globals
	if globals == nil {
		globals = map[string]string{"react": defaultLibraryGlobal}
	}

	absEntry, err := filepath.Abs(entryPoint)
	if err != nil {
		return "", fmt.Errorf("resolving entry point: %w", err)
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:       []string{absEntry},
		AbsWorkingDir:     filepath.Dir(absEntry),
		Bundle:            true,
		Format:            esbuild.FormatIIFE,
		GlobalName:        componentsGlobal,
		Write:             false,
		Platform:          esbuild.PlatformBrowser,
		Target:            esbuild.ES2020,
		Loader:            map[string]esbuild.Loader{".js": esbuild.LoaderJSX},
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		Plugins:           []esbuild.Plugin{globalsPlugin(globals)},
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("bundling %s: %s", entryPoint, strings.Join(msgs, "; "))
	}

	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling produced no output")
	}

	code := string(result.OutputFiles[0].Contents)
	code += fmt.Sprintf("(function(m){for(var k in m){if(k!=='default')globalThis[k]=m[k];}})(%s);\n", componentsGlobal)
	return code, nil
}

// scriptLoaders are the entry extensions that need esbuild even when the
// source is a classic script.
var scriptLoaders = map[string]esbuild.Loader{
	".jsx": esbuild.LoaderJSX,
	".ts":  esbuild.LoaderTS,
	".tsx": esbuild.LoaderTSX,
}

// transformScript compiles JSX or TypeScript syntax away without wrapping the
// script, so its top-level components stay globals.
func transformScript(src, filename string, loader esbuild.Loader, opts BundleOptions) (string, error) {
	result := esbuild.Transform(src, esbuild.TransformOptions{
		Loader:            loader,
		Sourcefile:        filename,
		Target:            esbuild.ES2020,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
	})
	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("transforming %s: %s", filename, strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}

// globalsPlugin resolves the given bare specifiers to modules re-exporting a
// global, so components can `import React from "react"` without bundling a
// second copy of the library.
func globalsPlugin(globals map[string]string) esbuild.Plugin {
	return esbuild.Plugin{
		Name: "reactssr-globals",
		Setup: func(build esbuild.PluginBuild) {
			build.OnResolve(esbuild.OnResolveOptions{Filter: `^[^./]`},
				func(args esbuild.OnResolveArgs) (esbuild.OnResolveResult, error) {
					if _, ok := globals[args.Path]; !ok {
						return esbuild.OnResolveResult{}, nil
					}
					return esbuild.OnResolveResult{Path: args.Path, Namespace: "reactssr-global"}, nil
				})
			build.OnLoad(esbuild.OnLoadOptions{Filter: `.*`, Namespace: "reactssr-global"},
				func(args esbuild.OnLoadArgs) (esbuild.OnLoadResult, error) {
					contents := fmt.Sprintf("module.exports = globalThis[%q];", globals[args.Path])
					return esbuild.OnLoadResult{Contents: &contents, Loader: esbuild.LoaderJS}, nil
				})
		},
	}
}

// needsBundling checks if a script contains module syntax that requires
// bundling. Plain global-scope scripts skip esbuild entirely.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "export ") ||
		strings.Contains(source, "export{") ||
		strings.Contains(source, "require(")
}
