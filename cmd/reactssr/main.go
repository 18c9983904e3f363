package main

import (
	"fmt"
	"os"

	"github.com/cryguy/reactssr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information set at build time.
var version = "dev"

// contextFlags are shared by every command that renders.
type contextFlags struct {
	library    string
	components string
	entry      string
	global     string
	verbose    bool
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.library, "library", "", "rendering library bundle (env REACTSSR_LIBRARY)")
	cmd.Flags().StringVar(&f.components, "components", "", "components bundle (env REACTSSR_COMPONENTS)")
	cmd.Flags().StringVar(&f.entry, "entry", "", "components entry point to bundle with esbuild instead of --components")
	cmd.Flags().StringVar(&f.global, "global", "", "global name the library exports (default React)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "development logging")
}

// renderer builds a Renderer from the environment overlaid with flags.
// reg may be nil.
func (f *contextFlags) renderer(reg prometheus.Registerer) (*reactssr.Renderer, *zap.Logger, error) {
	cfg, err := reactssr.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if f.library != "" {
		cfg.LibraryPath = f.library
	}
	if f.components != "" {
		cfg.ComponentsPath = f.components
	}
	if f.global != "" {
		cfg.LibraryGlobal = f.global
	}
	if f.entry != "" {
		cfg.Loader = &reactssr.BundleLoader{
			LibraryPath: cfg.LibraryPath,
			EntryPoint:  f.entry,
		}
	}

	logger, err := newLogger(f.verbose)
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger = logger
	cfg.Registerer = reg

	r, err := reactssr.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, logger, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reactssr",
		Short:         "Server-side render React components from Go",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		renderCmd(),
		bundleCmd(),
		serveCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
