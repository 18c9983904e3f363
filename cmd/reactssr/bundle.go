package main

import (
	"fmt"
	"os"

	"github.com/cryguy/reactssr"
	"github.com/spf13/cobra"
)

func bundleCmd() *cobra.Command {
	var (
		output string
		minify bool
		global string
	)

	cmd := &cobra.Command{
		Use:   "bundle ENTRY",
		Short: "Bundle component sources into a components.js usable by the renderer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := reactssr.BundleOptions{Minify: minify}
			if global != "" {
				opts.Globals = map[string]string{"react": global}
			}
			src, err := reactssr.BundleComponents(args[0], opts)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), src)
				return err
			}
			if err := os.WriteFile(output, []byte(src), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(src))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "components.js", "output file, - for stdout")
	cmd.Flags().BoolVar(&minify, "minify", false, "minify the bundle")
	cmd.Flags().StringVar(&global, "global", "", "global the react import resolves to (default React)")
	return cmd
}
